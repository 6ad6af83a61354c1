package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umatools/pkg/database"
	"umatools/pkg/models"
)

func TestNormalize(t *testing.T) {
	rows := []database.Row{
		{
			"i": int64(7), "n": "sound/l/1001/snd_bgm_live_1001_oke_01.awb", "d": nil,
			"g": int64(1), "l": int64(4096), "c": int64(99), "h": "Q7X2ABCD",
			"m": "sound", "k": int64(3), "s": int64(0), "p": int64(100), "e": int64(0),
		},
		{
			"i": "8", "n": []byte("chara/chr1001/pfb_chr1001"), "d": "desc",
			"g": []byte("2"), "l": "12345", "h": "R8Y3EFGH",
			"m": "manifest_v2", "k": nil, "s": int64(1), "p": nil, "e": int64(-2),
		},
	}

	entries, err := Normalize(rows)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, int64(7), first.Index)
	assert.Equal(t, "sound/l/1001/snd_bgm_live_1001_oke_01.awb", first.Name)
	assert.Nil(t, first.Description)
	assert.Equal(t, int64(4096), first.Length)
	assert.Equal(t, "Q7X2ABCD", first.Hash)
	assert.Equal(t, models.KindSound, first.Kind)
	assert.True(t, first.IsOnDemand)
	assert.False(t, first.Encrypted())

	second := entries[1]
	assert.Equal(t, int64(8), second.Index)
	assert.Equal(t, "chara/chr1001/pfb_chr1001", second.Name)
	require.NotNil(t, second.Description)
	assert.Equal(t, "desc", *second.Description)
	assert.Equal(t, int64(2), second.Group)
	assert.Equal(t, int64(12345), second.Length)
	assert.Equal(t, models.KindUnknown, second.Kind)
	assert.Equal(t, "manifest_v2", second.RawKind)
	assert.Equal(t, int64(0), second.FlagsK)
	assert.Equal(t, int64(0), second.Priority)
	assert.False(t, second.IsOnDemand)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), second.EncryptionKey)
}

func TestNormalizeEncryptionKeyAsString(t *testing.T) {
	entries, err := Normalize([]database.Row{
		{"n": "x", "h": "AB", "e": "18446744073709551615"},
		{"n": "y", "h": "CD", "e": "-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), entries[0].EncryptionKey)
	assert.Equal(t, uint64(18446744073709551615), entries[1].EncryptionKey)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]database.Row{
		{"n": "ok", "h": "AB", "l": int64(1)},
		{"n": "bad", "h": "CD", "l": "twelve"},
	})
	require.Error(t, err)

	var normErr *NormalizeError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, 1, normErr.Row)
	assert.Equal(t, "l", normErr.Column)
	assert.Contains(t, normErr.Error(), "twelve")
}

func TestNormalizeRejectsFractionalInteger(t *testing.T) {
	_, err := Normalize([]database.Row{{"n": "x", "h": "AB", "p": 1.5}})

	var normErr *NormalizeError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "p", normErr.Column)
}
