// Package query filters and orders report collections for display and export.
// Every function returns a new slice and leaves its input untouched.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/kalambet/visitlog/internal/report"
)

// Column is a sortable report field.
type Column string

const (
	ColumnDate            Column = "date"
	ColumnSerialNo        Column = "serialNo"
	ColumnCustomerName    Column = "customerName"
	ColumnReportNo        Column = "reportNo"
	ColumnContactPerson   Column = "contactPerson"
	ColumnVisitingPurpose Column = "visitingPurpose"
)

// Direction is the sort order of a view.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type comparator func(a, b report.Report) int

var comparators = map[Column]comparator{
	ColumnDate:            compareDate,
	ColumnSerialNo:        compareSerial,
	ColumnCustomerName:    byField(func(r report.Report) string { return r.CustomerName }),
	ColumnReportNo:        byField(func(r report.Report) string { return r.ReportNo }),
	ColumnContactPerson:   byField(func(r report.Report) string { return r.ContactPerson }),
	ColumnVisitingPurpose: byField(func(r report.Report) string { return r.VisitingPurpose }),
}

// Columns lists the sortable columns in display order.
func Columns() []Column {
	return []Column{
		ColumnSerialNo, ColumnDate, ColumnCustomerName,
		ColumnReportNo, ColumnContactPerson, ColumnVisitingPurpose,
	}
}

// ParseColumn validates a column name from external input.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if _, ok := comparators[c]; !ok {
		return "", fmt.Errorf("unknown sort column %q", s)
	}
	return c, nil
}

// ParseDirection validates a sort direction from external input. Matching is
// case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Toggle returns the direction a header click would switch to: the reverse
// when col is already the active column, ascending otherwise.
func Toggle(active Column, dir Direction, col Column) Direction {
	if active == col && dir == Asc {
		return Desc
	}
	return Asc
}

// Matches reports whether r contains term in its customer name, contact
// person, report number or visiting purpose, ignoring case. An empty term
// matches everything.
func Matches(r report.Report, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, v := range []string{r.CustomerName, r.ContactPerson, r.ReportNo, r.VisitingPurpose} {
		if v != "" && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// View returns the reports matching term, stably sorted by col in dir.
func View(reports []report.Report, term string, col Column, dir Direction) []report.Report {
	out := make([]report.Report, 0, len(reports))
	for _, r := range reports {
		if Matches(r, term) {
			out = append(out, r)
		}
	}
	sortStable(out, col, dir)
	return out
}

// Sorted returns a stably sorted copy of reports.
func Sorted(reports []report.Report, col Column, dir Direction) []report.Report {
	out := slices.Clone(reports)
	sortStable(out, col, dir)
	return out
}

// MonthYear returns the reports whose date falls in the given 1-indexed month
// of year, in storage order. Reports with an unparseable date never match.
func MonthYear(reports []report.Report, month, year int) []report.Report {
	var out []report.Report
	for _, r := range reports {
		d, err := report.ParseDate(r.Date)
		if err != nil {
			continue
		}
		if int(d.Month()) == month && d.Year() == year {
			out = append(out, r)
		}
	}
	return out
}

func sortStable(reports []report.Report, col Column, dir Direction) {
	cmpFn, ok := comparators[col]
	if !ok {
		cmpFn = compareDate
	}
	slices.SortStableFunc(reports, func(a, b report.Report) int {
		c := cmpFn(a, b)
		if dir == Desc {
			return -c
		}
		return c
	})
}

// compareDate orders by calendar date. Unparseable dates sort before every
// valid one and tie with each other.
func compareDate(a, b report.Report) int {
	da, errA := report.ParseDate(a.Date)
	db, errB := report.ParseDate(b.Date)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return da.Compare(db)
}

func compareSerial(a, b report.Report) int {
	return cmp.Compare(report.ParseSerial(a.SerialNo), report.ParseSerial(b.SerialNo))
}

func byField(get func(report.Report) string) comparator {
	return func(a, b report.Report) int {
		return strings.Compare(get(a), get(b))
	}
}
