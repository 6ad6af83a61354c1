package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Some part tables ship with right_vol twice; the second one is rright_vol.
const (
	brokenPartHeader = "time,lleft,left,center,right,rright,lleft_vol,left_vol,center_vol,right_vol,right_vol,lleft_pan,left_pan,center_pan,right_pan,rright_pan"
	fixedPartHeader  = "time,lleft,left,center,right,rright,lleft_vol,left_vol,center_vol,right_vol,rright_vol,lleft_pan,left_pan,center_pan,right_pan,rright_pan"
)

// csvTable is a parsed CSV with its header order kept.
type csvTable struct {
	header []string
	rows   []csvRow
}

type csvRow struct {
	header []string
	values map[string]string
}

func (r csvRow) has(column string) bool {
	_, ok := r.values[column]
	return ok
}

func (r csvRow) get(column string) string {
	return r.values[column]
}

// MarshalJSON writes the row as an object in header order.
func (r csvRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	written := 0
	for _, column := range r.header {
		value, ok := r.values[column]
		if !ok {
			continue
		}
		if written > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(column)
		val, _ := json.Marshal(value)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		written++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func parseCSV(text string) (*csvTable, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &csvTable{}, nil
	}

	table := &csvTable{header: records[0]}
	for _, record := range records[1:] {
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		row := csvRow{header: table.header, values: make(map[string]string, len(table.header))}
		for i, column := range table.header {
			if i < len(record) {
				row.values[column] = record[i]
			}
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}

// ProcessMusicScore converts an extracted music score CSV to JSON next to it.
// Part tables get per-track parsing, lyrics tables also get an .lrc file and
// anything else becomes a plain array of row objects.
func ProcessMusicScore(csvPath string) error {
	raw, err := os.ReadFile(csvPath)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n"))
	text = strings.Replace(text, brokenPartHeader, fixedPartHeader, 1)

	table, err := parseCSV(text)
	if err != nil {
		return fmt.Errorf("parse %s: %w", csvPath, err)
	}

	dir := filepath.Dir(csvPath)
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	jsonPath := filepath.Join(dir, stem+".json")

	switch {
	case strings.Contains(stem, "_part"):
		return writeJSON(jsonPath, convertPart(table))
	case strings.Contains(stem, "_lyrics"):
		lyrics := convertLyrics(table)
		if err := writeJSON(jsonPath, lyrics); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, stem+".lrc"), []byte(lyrics.LRCEncoded), 0o644)
	default:
		rows := table.rows
		if rows == nil {
			rows = []csvRow{}
		}
		return writeJSON(jsonPath, rows)
	}
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Tracks holds one value per lane, outermost left to outermost right.
type Tracks[T any] struct {
	Left3  T `json:"left3"`
	Left2  T `json:"left2"`
	Left   T `json:"left"`
	Center T `json:"center"`
	Right  T `json:"right"`
	Right2 T `json:"right2"`
	Right3 T `json:"right3"`
}

// MusicScorePart is one timed row of a part table.
type MusicScorePart struct {
	TimeMs       int64            `json:"timeMs"`
	TracksEnable Tracks[bool]     `json:"tracksEnable"`
	Tracks       Tracks[int64]    `json:"tracks"`
	Volume       Tracks[*float64] `json:"volume"`
	Pan          Tracks[*float64] `json:"pan"`
}

// MusicScorePartTable is the JSON form of a part table.
type MusicScorePartTable struct {
	AvailableTrack Tracks[bool]     `json:"availableTrack"`
	Part           []MusicScorePart `json:"part"`
}

// older tables name the second lanes lleft/rright
var laneAliases = map[string]string{"left2": "lleft", "right2": "rright"}

func laneColumn(row csvRow, lane, suffix string) (string, bool) {
	if row.has(lane + suffix) {
		return lane + suffix, true
	}
	if alias, ok := laneAliases[lane]; ok && row.has(alias+suffix) {
		return alias + suffix, true
	}
	return "", false
}

func laneInt(row csvRow, lane string) int64 {
	column, ok := laneColumn(row, lane, "")
	if !ok {
		return 0
	}
	return leadingInt(row.get(column))
}

func laneFloat(row csvRow, lane, suffix string) *float64 {
	column, ok := laneColumn(row, lane, suffix)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row.get(column)), 64)
	if err != nil {
		return nil
	}
	return &value
}

func lanes[T any](pick func(lane string) T) Tracks[T] {
	return Tracks[T]{
		Left3:  pick("left3"),
		Left2:  pick("left2"),
		Left:   pick("left"),
		Center: pick("center"),
		Right:  pick("right"),
		Right2: pick("right2"),
		Right3: pick("right3"),
	}
}

func convertPart(table *csvTable) MusicScorePartTable {
	out := MusicScorePartTable{Part: make([]MusicScorePart, 0, len(table.rows))}

	for _, row := range table.rows {
		part := MusicScorePart{
			TimeMs: leadingInt(row.get("time")),
			Tracks: lanes(func(lane string) int64 { return laneInt(row, lane) }),
			Volume: lanes(func(lane string) *float64 { return laneFloat(row, lane, "_vol") }),
			Pan:    lanes(func(lane string) *float64 { return laneFloat(row, lane, "_pan") }),
		}
		part.TracksEnable = lanes(func(lane string) bool { return laneInt(row, lane) >= 1 })

		merge := func(dst *bool, src bool) { *dst = *dst || src }
		merge(&out.AvailableTrack.Left3, part.TracksEnable.Left3)
		merge(&out.AvailableTrack.Left2, part.TracksEnable.Left2)
		merge(&out.AvailableTrack.Left, part.TracksEnable.Left)
		merge(&out.AvailableTrack.Center, part.TracksEnable.Center)
		merge(&out.AvailableTrack.Right, part.TracksEnable.Right)
		merge(&out.AvailableTrack.Right2, part.TracksEnable.Right2)
		merge(&out.AvailableTrack.Right3, part.TracksEnable.Right3)

		out.Part = append(out.Part, part)
	}
	return out
}

// LyricsLine is one timed lyric.
type LyricsLine struct {
	TimeMs int64  `json:"timeMs"`
	Lyrics string `json:"lyrics"`
}

// MusicScoreLyrics is the JSON form of a lyrics table.
type MusicScoreLyrics struct {
	Parsed     []LyricsLine `json:"parsed"`
	LRCEncoded string       `json:"lrcEncoded"`
}

func convertLyrics(table *csvTable) MusicScoreLyrics {
	out := MusicScoreLyrics{Parsed: make([]LyricsLine, 0, len(table.rows))}
	lines := make([]string, 0, len(table.rows))

	for _, row := range table.rows {
		ms := leadingInt(row.get("time"))
		text := strings.ReplaceAll(row.get("lyrics"), "[COMMA]", ",")
		out.Parsed = append(out.Parsed, LyricsLine{TimeMs: ms, Lyrics: text})
		lines = append(lines, "["+LRCTimestamp(ms)+"]"+text)
	}
	out.LRCEncoded = strings.Join(lines, "\n")
	return out
}

// LRCTimestamp renders mm:ss.xx. The hundredths are rounded independently of
// the seconds, which is what existing players of these files expect.
func LRCTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	hundredths := int64(math.Round(float64(ms)/10)) % 100
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, hundredths)
}

// leadingInt parses an optional sign and the digits that follow it,
// ignoring anything after. Unparseable input is 0.
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	value, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return value
}
