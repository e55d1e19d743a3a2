// Package logbook ties the report stores together into the entry workflow:
// submitting a visit records completion suggestions and the recent list, then
// either saves the report or stages it in a draft for a batch save.
package logbook

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/visitlog/internal/report"
	"github.com/kalambet/visitlog/internal/storage"
)

// Mode selects what Submit does with a valid report.
type Mode string

const (
	// ModeSingle saves each submission immediately.
	ModeSingle Mode = "single"
	// ModeMultiple stages submissions in the draft until Commit.
	ModeMultiple Mode = "multiple"
)

// ParseMode validates a mode from external input. Empty means single.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeMultiple:
		return ModeMultiple, nil
	}
	return "", fmt.Errorf("unknown entry mode %q", s)
}

// SuggestionKind names one of the two completion lists.
type SuggestionKind string

const (
	Customers SuggestionKind = "customers"
	Purposes  SuggestionKind = "purposes"
)

// Book is the logbook state shared by the CLI, HTTP API and MCP tools.
type Book struct {
	Reports   *report.Store
	Customers *report.Suggestions
	Purposes  *report.Suggestions
	Recent    *report.Recent
	Draft     *Draft
}

// Open loads every store from blobs.
func Open(blobs storage.Blobs) (*Book, error) {
	reports, err := report.NewStore(blobs)
	if err != nil {
		return nil, fmt.Errorf("loading reports: %w", err)
	}
	customers, err := report.LoadSuggestions(blobs, storage.KeyCustomerSuggestions)
	if err != nil {
		return nil, fmt.Errorf("loading customer suggestions: %w", err)
	}
	purposes, err := report.LoadSuggestions(blobs, storage.KeyPurposeSuggestions)
	if err != nil {
		return nil, fmt.Errorf("loading purpose suggestions: %w", err)
	}
	recent, err := report.LoadRecent(blobs)
	if err != nil {
		return nil, fmt.Errorf("loading recent entries: %w", err)
	}
	return &Book{
		Reports:   reports,
		Customers: customers,
		Purposes:  purposes,
		Recent:    recent,
		Draft:     &Draft{},
	}, nil
}

// Submission is the outcome of Submit.
type Submission struct {
	Report     report.Report `json:"report"`
	Staged     bool          `json:"staged"`
	NextSerial int           `json:"next_serial"`
}

// Submit validates r and records it. The customer name and a non-empty
// purpose go to the suggestion lists and the report is pushed to the recent
// list before it is saved (single mode) or staged (multiple mode). A missing
// report number is generated from the date.
func (b *Book) Submit(r report.Report, mode Mode) (Submission, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return Submission{}, err
	}
	if r.ReportNo == "" {
		num, err := report.NumberForDate(r.Date)
		if err != nil {
			return Submission{}, err
		}
		r.ReportNo = num
	}

	if _, err := b.Customers.Add(r.CustomerName); err != nil {
		return Submission{}, fmt.Errorf("recording customer suggestion: %w", err)
	}
	if r.VisitingPurpose != "" {
		if _, err := b.Purposes.Add(r.VisitingPurpose); err != nil {
			return Submission{}, fmt.Errorf("recording purpose suggestion: %w", err)
		}
	}
	if err := b.Recent.Push(r); err != nil {
		return Submission{}, fmt.Errorf("recording recent entry: %w", err)
	}

	sub := Submission{NextSerial: report.ParseSerial(r.SerialNo) + 1}
	switch mode {
	case ModeMultiple:
		b.Draft.Stage(r)
		sub.Report = r
		sub.Staged = true
		slog.Debug("report staged", "customer", r.CustomerName, "staged", b.Draft.Len())
	default:
		stored, err := b.Reports.Add(r)
		if err != nil {
			return Submission{}, err
		}
		sub.Report = stored
		slog.Debug("report saved", "id", stored.ID, "customer", stored.CustomerName)
	}
	return sub, nil
}

// Commit saves every staged draft entry in one write.
func (b *Book) Commit() ([]report.Report, error) {
	return b.Draft.Commit(b.Reports)
}

// Defaults returns the values a new entry form starts with: the next serial
// number, today's date and the report number for today.
func (b *Book) Defaults(today time.Time) report.Report {
	return report.Report{
		SerialNo: fmt.Sprint(b.Reports.NextSerial()),
		Date:     report.FormatDate(today),
		ReportNo: report.GenerateNumber(today),
	}
}

// Suggestions returns the list for kind, or nil for an unknown kind.
func (b *Book) Suggestions(kind SuggestionKind) *report.Suggestions {
	switch kind {
	case Customers:
		return b.Customers
	case Purposes:
		return b.Purposes
	}
	return nil
}
