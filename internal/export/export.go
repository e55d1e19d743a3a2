// Package export renders a month of visit reports to PDF, XLSX or JSON and
// stores the file in a blob destination.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/query"
	"github.com/kalambet/visitlog/internal/report"
)

var (
	// ErrEmptyExportSet is returned when no report falls in the requested
	// period. No file is produced.
	ErrEmptyExportSet = errors.New("no reports found for the selected period")
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid export request")
)

// Format is an export file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatPDF, FormatXLSX, FormatJSON} }

// ParseFormat validates a format name from external input.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatPDF, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, s)
}

// Request selects what to export. SortBy defaults to date.
type Request struct {
	Format Format       `json:"format"`
	Month  int          `json:"month"`
	Year   int          `json:"year"`
	SortBy query.Column `json:"sort_by,omitempty"`
}

// Validate checks the request and fills in defaults.
func (r *Request) Validate() error {
	if _, err := ParseFormat(string(r.Format)); err != nil {
		return err
	}
	r.Format = Format(strings.ToLower(string(r.Format)))
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month %d outside 1-12", ErrInvalidRequest, r.Month)
	}
	if r.Year < 1 || r.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidRequest, r.Year)
	}
	if r.SortBy == "" {
		r.SortBy = query.ColumnDate
	}
	if _, err := query.ParseColumn(string(r.SortBy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Prepare filters all to the month and year and sorts ascending by sortBy.
// Exports are always ascending whatever order the interactive view uses.
func Prepare(all []report.Report, month, year int, sortBy query.Column) ([]report.Report, error) {
	rows := query.MonthYear(all, month, year)
	if len(rows) == 0 {
		return nil, ErrEmptyExportSet
	}
	return query.Sorted(rows, sortBy, query.Asc), nil
}

// FileName is the name an export of the given period is stored under, for
// example Visit_Reports_May_2024.pdf.
func FileName(f Format, month, year int) string {
	return fmt.Sprintf("Visit_Reports_%s_%d.%s", report.MonthName(month), year, f)
}

// Period is the human readable "Month Year" label used as the subtitle.
func Period(month, year int) string {
	return fmt.Sprintf("%s %d", report.MonthName(month), year)
}

// Document is what a Renderer turns into a file.
type Document struct {
	Title   string
	Period  string
	Reports []report.Report
}

// Renderer writes a document in one file format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
	ContentType() string
}

// Result describes a stored export.
type Result struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
	Rows   int    `json:"rows"`
	Size   int64  `json:"size_bytes"`
}

// Exporter renders exports and writes them to a blob store.
type Exporter struct {
	store     blob.Store
	renderers map[Format]Renderer
}

// NewExporter returns an Exporter with the PDF, XLSX and JSON renderers.
func NewExporter(store blob.Store) *Exporter {
	return &Exporter{
		store: store,
		renderers: map[Format]Renderer{
			FormatPDF:  PDFRenderer{},
			FormatXLSX: XLSXRenderer{},
			FormatJSON: JSONRenderer{},
		},
	}
}

// Store returns the destination exports are written to.
func (e *Exporter) Store() blob.Store { return e.store }

// Render validates req, prepares the rows and renders them to w without
// storing anything. It returns the number of rows written.
func (e *Exporter) Render(w io.Writer, all []report.Report, req Request) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	rows, err := Prepare(all, req.Month, req.Year, req.SortBy)
	if err != nil {
		return 0, err
	}
	doc := Document{Title: "Visit Reports", Period: Period(req.Month, req.Year), Reports: rows}
	if err := e.renderers[req.Format].Render(w, doc); err != nil {
		return 0, fmt.Errorf("rendering %s: %w", req.Format, err)
	}
	return len(rows), nil
}

// Export renders the requested period and stores it under FileName.
func (e *Exporter) Export(ctx context.Context, all []report.Report, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	n, err := e.Render(&buf, all, req)
	if err != nil {
		return Result{}, err
	}

	name := FileName(req.Format, req.Month, req.Year)
	info, err := e.store.Put(ctx, name, &buf, e.renderers[req.Format].ContentType())
	if err != nil {
		return Result{}, fmt.Errorf("storing %s: %w", name, err)
	}
	slog.Info("export written", "name", name, "rows", n, "bytes", info.Size, "driver", e.store.Driver())
	return Result{Name: name, Format: req.Format, Rows: n, Size: info.Size}, nil
}

// List returns the stored exports.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	return e.store.List(ctx, "Visit_Reports_")
}

// Open returns a reader for a stored export.
func (e *Exporter) Open(ctx context.Context, name string) (blob.Info, io.ReadCloser, error) {
	return e.store.Get(ctx, name)
}
