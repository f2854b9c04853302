package timestamp_test

import (
	"fmt"
	"time"

	"github.com/choi857/kinetic-simulator/pkg/timestamp"
)

// ExampleParseDateTime shows the accepted wall-clock forms
func ExampleParseDateTime() {
	for _, s := range []string{"2024-03-05", "2024-03-05 08:30", "2024-03-05T08:30:15"} {
		t, ok := timestamp.ParseDateTime(s)
		fmt.Println(ok, timestamp.FormatDateTime(t))
	}

	// Output:
	// true 2024-03-05 00:00:00
	// true 2024-03-05 08:30:00
	// true 2024-03-05 08:30:15
}

// ExampleEditableRange shows the default window of an editable timestamp
func ExampleEditableRange() {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lo, hi := timestamp.EditableRange(now)
	fmt.Println(lo, time.UnixMilli(hi).UTC().Format(time.RFC3339))

	// Output:
	// 1577836800000 2026-01-01T00:00:00Z
}
