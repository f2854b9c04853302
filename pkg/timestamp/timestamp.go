// Package timestamp provides the epoch-millisecond and wall-clock date helpers used by
// the value synthesizer.
//
// Epoch values are int64 milliseconds since the Unix epoch (UTC). Wall-clock dates use
// the layout "2006-01-02 15:04:05" and carry no zone; they are parsed and formatted in UTC.
package timestamp

import (
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the layout of generated date strings.
const DateTimeLayout = "2006-01-02 15:04:05"

// EditableEpochStart is the default lower bound of an editable timestamp, 2020-01-01T00:00:00Z.
const EditableEpochStart int64 = 1577836800000

// EditableHorizon is how far past "now" the default upper bound of an editable timestamp lies.
const EditableHorizon = 365 * 24 * time.Hour

// accepted wall-clock layouts, most specific first
var dateLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseMillis parses a decimal epoch-millisecond literal.
func ParseMillis(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// EditableRange returns the default [min, max] window of an editable timestamp relative to now.
func EditableRange(now time.Time) (int64, int64) {
	return EditableEpochStart, now.Add(EditableHorizon).UnixMilli()
}

// ParseDateTime parses a wall-clock date in one of the accepted layouts. A "T"
// between date and time is treated like a space.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10] + " " + s[11:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders t in DateTimeLayout.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
