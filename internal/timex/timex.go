// Package timex holds time helpers shared by config and storage: a JSON
// friendly Duration and the fixed-width UTC text format used for every
// persisted timestamp.
package timex

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Duration wraps time.Duration so JSON config can use "60s" or integer
// nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

// StorageLayout is fixed-width and always UTC, so lexical order of stored
// values equals chronological order.
const StorageLayout = "2006-01-02T15:04:05.000Z"

// Format renders t in StorageLayout.
func Format(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// Parse reads a value written by Format. RFC3339 input is accepted as well
// so rows written by other tools still load.
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(StorageLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatPtr is Format for optional values; nil becomes SQL NULL.
func FormatPtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: Format(*t), Valid: true}
}

// ParseNull is the inverse of FormatPtr.
func ParseNull(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
