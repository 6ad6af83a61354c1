package compress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressFrame(t *testing.T, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	_, err := writer.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestDecompressFrameRoundTrip(t *testing.T) {
	payload := append([]byte("SQLite format 3\x00"), bytes.Repeat([]byte("master table row "), 4096)...)

	out, err := DecompressFrame(compressFrame(t, payload))
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestDecompressFrameToStreams(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 100_000)

	var dst bytes.Buffer
	n, err := DecompressFrameTo(&dst, bytes.NewReader(compressFrame(t, payload)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, dst.Bytes())
}

func TestDecompressFrameGarbage(t *testing.T) {
	_, err := DecompressFrame([]byte("this is not an lz4 frame at all"))
	require.Error(t, err)

	var decompErr *DecompressionError
	assert.True(t, errors.As(err, &decompErr))
}

func TestDecompressFrameTruncated(t *testing.T) {
	frame := compressFrame(t, bytes.Repeat([]byte("abcdefgh"), 10_000))

	_, err := DecompressFrame(frame[:len(frame)/2])
	require.Error(t, err)

	var decompErr *DecompressionError
	assert.ErrorAs(t, err, &decompErr)
}

func TestDecompressFrameEmpty(t *testing.T) {
	_, err := DecompressFrame(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}
