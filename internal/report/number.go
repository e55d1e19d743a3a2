package report

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// NumberPrefix starts every generated report number.
const NumberPrefix = "DVG"

// GenerateNumber builds the report number for a visit date, for example
// 2024-05-02 -> "DVG 2024-25/MAY 02". Numbers are not unique; two reports on
// the same day get the same number.
func GenerateNumber(d time.Time) string {
	year := d.Year()
	month := strings.ToUpper(d.Month().String()[:3])
	return fmt.Sprintf("%s %d-%02d/%s %02d", NumberPrefix, year, (year+1)%100, month, d.Day())
}

// NumberForDate parses a stored date and generates its report number.
func NumberForDate(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return GenerateNumber(d), nil
}

// ParseSerial reads the leading integer of a serial number the way the
// browser's parseInt did: surrounding text is ignored and values without a
// leading number count as 0.
func ParseSerial(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		if n > (math.MaxInt-int(c-'0'))/10 {
			n = math.MaxInt
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

// NextSerial suggests the serial number for a new entry: one past the highest
// serial in reports, or 1 when there are none.
func NextSerial(reports []Report) int {
	if len(reports) == 0 {
		return 1
	}
	highest := math.MinInt
	for _, r := range reports {
		if n := ParseSerial(r.SerialNo); n > highest {
			highest = n
		}
	}
	if highest == math.MaxInt {
		return highest
	}
	return highest + 1
}
