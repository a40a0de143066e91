package valueobject

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for business dates
const DateLayout = "2006-01-02"

// BusinessDate truncates t to midnight UTC of its calendar day.
// Ledger postings, rates and reports are keyed by business date, not instant.
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current business date
func Today() time.Time {
	return BusinessDate(time.Now())
}

// ParseBusinessDate parses a YYYY-MM-DD string
func ParseBusinessDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatBusinessDate formats a business date as YYYY-MM-DD
func FormatBusinessDate(t time.Time) string {
	return t.Format(DateLayout)
}
