package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 form the store generates: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// storedLayouts are tried in order when reading values from the diary file.
var storedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
	time.RFC1123Z,
	time.RFC1123,
}

// Timestamp is an instant read from or written to the diary file.
// The text it was read or supplied as is kept and written back unchanged;
// values no layout understands keep their JSON verbatim and have a zero Time.
type Timestamp struct {
	time.Time

	raw     string
	literal json.RawMessage
}

// NewTimestamp converts t to UTC and truncates it to the stored precision.
func NewTimestamp(t time.Time) Timestamp {
	u := t.UTC().Truncate(time.Millisecond)
	return Timestamp{Time: u, raw: u.Format(TimestampLayout)}
}

// ParseTimestamp accepts any RFC 3339 value and keeps s as its stored text.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Timestamp{Time: t.UTC(), raw: s}, nil
}

// Valid reports whether the value was understood as an instant.
func (t Timestamp) Valid() bool {
	return t.literal == nil && (t.raw != "" || !t.Time.IsZero())
}

// String returns the stored text.
func (t Timestamp) String() string {
	switch {
	case t.raw != "":
		return t.raw
	case t.literal != nil:
		var s string
		if json.Unmarshal(t.literal, &s) == nil {
			return s
		}
		return string(t.literal)
	}
	return t.UTC().Format(TimestampLayout)
}

// Equal reports whether t and u hold the same instant and the same stored text.
func (t Timestamp) Equal(u Timestamp) bool {
	return t.Time.Equal(u.Time) && t.raw == u.raw && bytes.Equal(t.literal, u.literal)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.literal != nil {
		return t.literal, nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		for _, layout := range storedLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				*t = Timestamp{Time: parsed.UTC(), raw: s}
				return nil
			}
		}
	}
	*t = Timestamp{literal: append(json.RawMessage(nil), data...)}
	return nil
}

// MarshalYAML lets the export front-matter carry the same string form.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.String(), nil
}
