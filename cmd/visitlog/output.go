package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/report"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printReports writes reports as an aligned table with dates in DD/MM/YYYY.
// Table cells stay uncoloured; escape codes break tabwriter alignment.
func printReports(w io.Writer, reports []report.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERIAL\tDATE\tCUSTOMER\tREPORT NO\tCONTACT\tPURPOSE")
	for _, r := range reports {
		contact := r.ContactPerson
		if r.ContactNo != "" {
			contact = strings.TrimSpace(contact + " " + r.ContactNo)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.SerialNo,
			report.DisplayDate(r.Date),
			r.CustomerName,
			r.ReportNo,
			orDash(contact),
			r.VisitingPurpose,
		)
	}
	tw.Flush()
}

// printReport writes every field of a single report.
func printReport(w io.Writer, r report.Report) {
	fields := []struct{ label, value string }{
		{"ID", r.ID},
		{"Serial No", r.SerialNo},
		{"Date", report.DisplayDate(r.Date)},
		{"Customer Name", r.CustomerName},
		{"Report No", r.ReportNo},
		{"Contact Person", orDash(r.ContactPerson)},
		{"Contact No", orDash(r.ContactNo)},
		{"Visiting Purpose", r.VisitingPurpose},
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, fmt.Sprintf("%-17s", f.label+":")), f.value)
	}
}

func printExports(w io.Writer, files []blob.Info, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, f := range files {
		modified := "-"
		if !f.LastModified.IsZero() {
			modified = humanize.RelTime(f.LastModified, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, humanize.Bytes(uint64(f.Size)), modified)
	}
	tw.Flush()
}
