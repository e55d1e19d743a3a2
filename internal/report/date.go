package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "02/01/2006"
)

// ParseDate reads a stored date as a plain calendar date. A trailing time
// part ("2024-05-02T10:00:00Z") is accepted and ignored; no timezone
// conversion is ever applied, so the day never shifts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		switch s[len(dateLayout)] {
		case 'T', 't', ' ':
			s = s[:len(dateLayout)]
		}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders d in the stored YYYY-MM-DD form.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// DisplayDate renders a stored date as DD/MM/YYYY. Unparseable values are
// returned unchanged.
func DisplayDate(s string) string {
	d, err := ParseDate(s)
	if err != nil {
		return s
	}
	return d.Format(displayLayout)
}

// MonthName returns the English name of a 1-indexed month, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
