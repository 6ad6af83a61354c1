// Package compress unpacks the LZ4-framed master database the CDN serves.
package compress

import (
	"bytes"
	"errors"
	"io"

	"github.com/pierrec/lz4/v4"
)

// ErrEmptyFrame is returned when a frame decodes to nothing.
var ErrEmptyFrame = errors.New("frame holds no data")

// DecompressionError is returned for malformed or truncated frames.
type DecompressionError struct {
	Err error
}

func (e *DecompressionError) Error() string {
	return "lz4 decompress: " + e.Err.Error()
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}

// DecompressFrame decodes one or more concatenated LZ4 frames held in memory.
func DecompressFrame(src []byte) ([]byte, error) {
	var out bytes.Buffer
	if _, err := DecompressFrameTo(&out, bytes.NewReader(src)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecompressFrameTo streams the decoded frame content of src into dst.
// Errors writing to dst are returned as is.
func DecompressFrameTo(dst io.Writer, src io.Reader) (int64, error) {
	reader := lz4.NewReader(src)

	written, err := io.Copy(dst, &frameReader{reader: reader})
	if err != nil {
		return written, err
	}
	if written == 0 {
		return 0, &DecompressionError{Err: ErrEmptyFrame}
	}
	return written, nil
}

// frameReader tags decoder errors so io.Copy callers can tell them apart
// from write errors.
type frameReader struct {
	reader io.Reader
}

func (f *frameReader) Read(p []byte) (int, error) {
	n, err := f.reader.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &DecompressionError{Err: err}
	}
	return n, err
}
