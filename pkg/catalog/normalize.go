package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"umatools/pkg/database"
	"umatools/pkg/models"
)

// AssetTable is the catalog table holding one row per asset.
const AssetTable = "a"

// Column names of the asset table.
const (
	colIndex         = "i"
	colName          = "n"
	colDescription   = "d"
	colGroup         = "g"
	colLength        = "l"
	colHash          = "h"
	colKind          = "m"
	colFlags         = "k"
	colStatus        = "s"
	colPriority      = "p"
	colEncryptionKey = "e"
)

// NormalizeError is returned when a catalog cell cannot be read as the type
// its column requires.
type NormalizeError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *NormalizeError) Error() string {
	msg := fmt.Sprintf("catalog row %d column %q: unexpected value %v", e.Row, e.Column, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NormalizeError) Unwrap() error {
	return e.Err
}

// Normalize maps raw asset table rows to entries. NULL numeric cells read as 0.
func Normalize(rows []database.Row) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(rows))

	for i, row := range rows {
		entry, err := normalizeRow(i, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func normalizeRow(index int, row database.Row) (models.Entry, error) {
	var (
		entry models.Entry
		err   error
	)

	ints := []struct {
		column string
		target *int64
	}{
		{colIndex, &entry.Index},
		{colGroup, &entry.Group},
		{colLength, &entry.Length},
		{colFlags, &entry.FlagsK},
		{colPriority, &entry.Priority},
	}
	for _, field := range ints {
		if *field.target, err = intCell(index, row, field.column); err != nil {
			return entry, err
		}
	}

	status, err := intCell(index, row, colStatus)
	if err != nil {
		return entry, err
	}
	entry.IsOnDemand = status == 0

	if entry.EncryptionKey, err = uintCell(index, row, colEncryptionKey); err != nil {
		return entry, err
	}

	if entry.Name, err = textCell(index, row, colName); err != nil {
		return entry, err
	}
	if entry.Hash, err = textCell(index, row, colHash); err != nil {
		return entry, err
	}
	if entry.RawKind, err = textCell(index, row, colKind); err != nil {
		return entry, err
	}
	entry.Kind = models.ParseKind(entry.RawKind)

	if value := row[colDescription]; value != nil {
		description, err := textCell(index, row, colDescription)
		if err != nil {
			return entry, err
		}
		entry.Description = &description
	}

	return entry, nil
}

func intCell(index int, row database.Row, column string) (int64, error) {
	switch value := row[column].(type) {
	case nil:
		return 0, nil
	case int64:
		return value, nil
	case float64:
		if value != math.Trunc(value) || math.Abs(value) > math.MaxInt64 {
			return 0, &NormalizeError{Row: index, Column: column, Value: value}
		}
		return int64(value), nil
	case bool:
		if value {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseInt(index, column, value)
	case []byte:
		return parseInt(index, column, string(value))
	default:
		return 0, &NormalizeError{Row: index, Column: column, Value: value}
	}
}

func parseInt(index int, column, raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, &NormalizeError{Row: index, Column: column, Value: raw, Err: err}
	}
	return parsed, nil
}

// uintCell reads a 64-bit key. SQLite stores keys above MaxInt64 as negative
// integers, so those are reinterpreted bit for bit.
func uintCell(index int, row database.Row, column string) (uint64, error) {
	switch value := row[column].(type) {
	case string:
		return parseUint(index, column, value)
	case []byte:
		return parseUint(index, column, string(value))
	default:
		signed, err := intCell(index, row, column)
		return uint64(signed), err
	}
}

func parseUint(index int, column, raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	if strings.HasPrefix(trimmed, "-") {
		signed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, &NormalizeError{Row: index, Column: column, Value: raw, Err: err}
		}
		return uint64(signed), nil
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, &NormalizeError{Row: index, Column: column, Value: raw, Err: err}
	}
	return parsed, nil
}

func textCell(index int, row database.Row, column string) (string, error) {
	switch value := row[column].(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case []byte:
		return string(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	default:
		return "", &NormalizeError{Row: index, Column: column, Value: value}
	}
}
