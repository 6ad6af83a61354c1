package extract

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readJSON(t *testing.T, path string, into any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, into))
}

func TestLRCTimestamp(t *testing.T) {
	cases := map[int64]string{
		0:       "00:00.00",
		12345:   "00:12.35",
		61000:   "01:01.00",
		125999:  "02:05.00",
		3599990: "59:59.99",
		-5:      "00:00.00",
	}
	for ms, want := range cases {
		assert.Equal(t, want, LRCTimestamp(ms), "ms=%d", ms)
	}
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, int64(12), leadingInt("12abc"))
	assert.Equal(t, int64(-3), leadingInt(" -3 "))
	assert.Equal(t, int64(0), leadingInt(""))
	assert.Equal(t, int64(0), leadingInt("x1"))
	assert.Equal(t, int64(1), leadingInt("1.9"))
}

func TestProcessMusicScoreMissingFile(t *testing.T) {
	err := ProcessMusicScore(filepath.Join(t.TempDir(), "m1001_part.csv"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestProcessMusicScoreLyrics(t *testing.T) {
	path := writeCSV(t, "m1001_lyrics.csv", "time,lyrics\r\n1000,first[COMMA] line\r\n\r\n62500,second\r\n")
	require.NoError(t, ProcessMusicScore(path))

	var got MusicScoreLyrics
	readJSON(t, filepath.Join(filepath.Dir(path), "m1001_lyrics.json"), &got)
	assert.Equal(t, []LyricsLine{{TimeMs: 1000, Lyrics: "first, line"}, {TimeMs: 62500, Lyrics: "second"}}, got.Parsed)
	assert.Equal(t, "[00:01.00]first, line\n[01:02.50]second", got.LRCEncoded)

	lrc, err := os.ReadFile(filepath.Join(filepath.Dir(path), "m1001_lyrics.lrc"))
	require.NoError(t, err)
	assert.Equal(t, got.LRCEncoded, string(lrc))
}

func TestProcessMusicScorePartWithBrokenHeader(t *testing.T) {
	csv := brokenPartHeader + "\n" +
		"0,1,0,2,0,0,,0.5,1,0.8,0.25,,-0.5,0,0.5,1\n" +
		"500,0,0,1,0,3,,,,,,,,,,\n"
	path := writeCSV(t, "m1001_part.csv", csv)
	require.NoError(t, ProcessMusicScore(path))

	var got MusicScorePartTable
	readJSON(t, filepath.Join(filepath.Dir(path), "m1001_part.json"), &got)
	require.Len(t, got.Part, 2)

	first := got.Part[0]
	assert.Equal(t, int64(0), first.TimeMs)
	assert.Equal(t, int64(1), first.Tracks.Left2, "left2 falls back to lleft")
	assert.Equal(t, int64(2), first.Tracks.Center)
	assert.True(t, first.TracksEnable.Left2)
	assert.False(t, first.TracksEnable.Left)
	assert.False(t, first.TracksEnable.Left3)

	require.NotNil(t, first.Volume.Right2)
	assert.InDelta(t, 0.25, *first.Volume.Right2, 1e-9, "second right_vol is rright_vol")
	require.NotNil(t, first.Volume.Right)
	assert.InDelta(t, 0.8, *first.Volume.Right, 1e-9)
	assert.Nil(t, first.Volume.Left2, "empty cell")
	assert.Nil(t, first.Volume.Left3, "absent column")
	require.NotNil(t, first.Pan.Left)
	assert.InDelta(t, -0.5, *first.Pan.Left, 1e-9)

	assert.Equal(t, int64(3), got.Part[1].Tracks.Right2)

	assert.Equal(t, Tracks[bool]{Left2: true, Center: true, Right2: true}, got.AvailableTrack)
}

func TestProcessMusicScoreGenericKeepsColumnOrder(t *testing.T) {
	path := writeCSV(t, "m1001_cyalume.csv", "time,zeta,alpha\n10,z,a\n")
	require.NoError(t, ProcessMusicScore(path))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "m1001_cyalume.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"time\": \"10\",\n    \"zeta\": \"z\",\n    \"alpha\": \"a\"\n  }\n]", string(data))
}

func TestProcessMusicScoreEmptyTable(t *testing.T) {
	path := writeCSV(t, "m1001_cyalume.csv", "time,a\n")
	require.NoError(t, ProcessMusicScore(path))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "m1001_cyalume.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
