package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/visitlog/internal/config"
	"github.com/kalambet/visitlog/internal/logbook"
	"github.com/kalambet/visitlog/internal/query"
	"github.com/kalambet/visitlog/internal/report"
	"github.com/kalambet/visitlog/internal/storage"
)

// now is swapped in tests.
var now = time.Now

// reportFlags registers the per-field flags shared by add and edit.
func reportFlags(cmd *cobra.Command) {
	cmd.Flags().String("serial", "", "serial number (default next in sequence)")
	cmd.Flags().String("date", "", "visit date, YYYY-MM-DD (default today)")
	cmd.Flags().String("customer", "", "customer name")
	cmd.Flags().String("report-no", "", "report number (default generated from the date)")
	cmd.Flags().String("contact-person", "", "person met")
	cmd.Flags().String("contact-no", "", "contact phone number")
	cmd.Flags().String("purpose", "", "visiting purpose")
}

// applyReportFlags copies every flag the user set onto r.
func applyReportFlags(cmd *cobra.Command, r *report.Report) {
	fields := map[string]*string{
		"serial":         &r.SerialNo,
		"date":           &r.Date,
		"customer":       &r.CustomerName,
		"report-no":      &r.ReportNo,
		"contact-person": &r.ContactPerson,
		"contact-no":     &r.ContactNo,
		"purpose":        &r.VisitingPurpose,
	}
	for name, dst := range fields {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
}

// resolveID finds a report by full id or unique id prefix.
func resolveID(book *logbook.Book, arg string) (report.Report, error) {
	if r, _, err := book.Reports.Get(arg); err == nil {
		return r, nil
	}
	var matches []report.Report
	for _, r := range book.Reports.List() {
		if r.ID != "" && strings.HasPrefix(r.ID, arg) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return report.Report{}, fmt.Errorf("%w: %s", report.ErrNotFound, arg)
	case 1:
		return matches[0], nil
	}
	return report.Report{}, fmt.Errorf("id prefix %q matches %d reports", arg, len(matches))
}

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a visit report",
	Long: `Record a visit report. Serial number, date and report number default to
the next serial, today and the number generated for the date.

Examples:
  visitlog add --customer "Acme Ltd" --purpose "Installation"
  visitlog add --customer Globex --purpose Service --date 2024-05-02 --contact-person "Jane Roe"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r := a.book.Defaults(now())
		r.ReportNo = ""
		applyReportFlags(cmd, &r)

		sub, err := a.book.Submit(r, logbook.ModeSingle)
		if err != nil {
			return err
		}
		printSuccess("Saved report %s (%s)", shortID(sub.Report.ID), sub.Report.ReportNo)
		printStatus("Next serial", "%d", sub.NextSerial)
		return nil
	},
}

func init() {
	reportFlags(addCmd)
}

// --- batch ---

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Record several visit reports from a JSON array and save them together",
	Long: `Record several visit reports from a JSON array ("-" reads stdin). Every
entry is validated first; entries are then staged and saved in one write.
Missing serial numbers continue the sequence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readReports(cmd, args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			printWarning("No entries in %s", args[0])
			return nil
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		next := a.book.Reports.NextSerial()
		for i := range entries {
			if strings.TrimSpace(entries[i].SerialNo) == "" {
				entries[i].SerialNo = fmt.Sprint(next)
			}
			next = report.ParseSerial(entries[i].SerialNo) + 1
			if err := entries[i].Normalize().Validate(); err != nil {
				return fmt.Errorf("entry %d: %w", i+1, err)
			}
		}

		for i, r := range entries {
			if _, err := a.book.Submit(r, logbook.ModeMultiple); err != nil {
				return fmt.Errorf("staging entry %d: %w", i+1, err)
			}
		}
		printStep("Staged %d entries", a.book.Draft.Len())

		added, err := a.book.Commit()
		if err != nil {
			return err
		}
		printSuccess("Saved %d reports", len(added))
		return nil
	},
}

func readReports(cmd *cobra.Command, path string) ([]report.Report, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var entries []report.Report
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports, optionally filtered and sorted",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		sortBy, _ := cmd.Flags().GetString("sort")
		dirFlag, _ := cmd.Flags().GetString("dir")
		month, _ := cmd.Flags().GetInt("month")
		year, _ := cmd.Flags().GetInt("year")
		asJSON, _ := cmd.Flags().GetBool("json")

		col, err := query.ParseColumn(sortBy)
		if err != nil {
			return err
		}
		dir, err := query.ParseDirection(dirFlag)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		all := a.book.Reports.List()
		if month != 0 || year != 0 {
			if month < 1 || month > 12 || year < 1 {
				return fmt.Errorf("--month and --year must be given together, month in 1-12")
			}
			all = query.MonthYear(all, month, year)
		}
		view := query.View(all, search, col, dir)

		if asJSON {
			if view == nil {
				view = []report.Report{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		if len(view) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No reports found.")
			return nil
		}
		printReports(cmd.OutOrStdout(), view)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("search", "q", "", "case-insensitive substring matched against customer, contact person, report number and purpose")
	listCmd.Flags().String("sort", string(query.ColumnDate), "sort column: date, serialNo, customerName, reportNo, contactPerson, visitingPurpose")
	listCmd.Flags().String("dir", string(query.Desc), "sort direction: asc or desc")
	listCmd.Flags().Int("month", 0, "restrict to this month (1-12)")
	listCmd.Flags().Int("year", 0, "restrict to this year")
	listCmd.Flags().Bool("json", false, "print JSON instead of a table")
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := resolveID(a.book, args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), r)
		return nil
	},
}

// --- edit ---

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a stored report",
	Long: `Change fields of a stored report. Only the flags given are changed; the
result is validated like a new entry and replaces the stored report.

Example:
  visitlog edit 3f2a91c4 --purpose "Follow-up"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := resolveID(a.book, args[0])
		if err != nil {
			return err
		}
		applyReportFlags(cmd, &r)
		r = r.Normalize()
		if err := r.Validate(); err != nil {
			return err
		}
		if err := a.book.Reports.UpdateByID(r.ID, r); err != nil {
			return err
		}
		printSuccess("Updated report %s", shortID(r.ID))
		return nil
	},
}

func init() {
	reportFlags(editCmd)
}

// --- delete ---

const deletePrompt = "Are you sure you want to delete this report? [y/N] "

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := resolveID(a.book, args[0])
		if err != nil {
			return err
		}

		if !yes {
			printReport(cmd.OutOrStdout(), r)
			fmt.Fprint(cmd.OutOrStdout(), deletePrompt)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
				printWarning("Not deleted")
				return nil
			}
		}

		if err := a.book.Reports.RemoveByID(r.ID); err != nil {
			return err
		}
		printSuccess("Deleted report %s", shortID(r.ID))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "delete without asking")
}

// --- number ---

var numberCmd = &cobra.Command{
	Use:   "number [date]",
	Short: "Print the report number for a date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := report.FormatDate(now())
		if len(args) == 1 {
			date = args[0]
		}
		num, err := report.NumberForDate(date)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), num)
		return nil
	},
}

// --- next-serial ---

var nextSerialCmd = &cobra.Command{
	Use:   "next-serial",
	Short: "Print the next serial number",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintln(cmd.OutOrStdout(), a.book.Reports.NextSerial())
		return nil
	},
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:       "suggest <customers|purposes> [input]",
	Short:     "List completion suggestions, or those matching input",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{string(logbook.Customers), string(logbook.Purposes)},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list := a.book.Suggestions(logbook.SuggestionKind(args[0]))
		if list == nil {
			return fmt.Errorf("unknown suggestion list %q: want customers or purposes", args[0])
		}
		values := list.Values()
		if len(args) == 2 {
			values = list.Match(args[1])
		}
		for _, v := range values {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

// --- recent ---

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently entered reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.book.Recent.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recent entries.")
			return nil
		}
		printReports(cmd.OutOrStdout(), entries)
		return nil
	},
}

// --- import ---

// legacyDump is the browser storage layout: one JSON value per key.
type legacyDump struct {
	Reports   []report.Report `json:"visitReports"`
	Recent    []report.Report `json:"recentEntries"`
	Customers []string        `json:"customerSuggestions"`
	Purposes  []string        `json:"purposeSuggestions"`
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Append reports from a JSON export or a browser storage dump",
	Long: `Append reports from a JSON file. The file is either an array of reports (a
JSON export) or an object holding the browser storage keys visitReports,
recentEntries, customerSuggestions and purposeSuggestions. Reports are stored
as they are, without validation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		dump, err := parseImport(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.book.Reports.AddBatch(dump.Reports)
		if err != nil {
			return err
		}
		for _, c := range dump.Customers {
			if _, err := a.book.Customers.Add(c); err != nil {
				return err
			}
		}
		for _, p := range dump.Purposes {
			if _, err := a.book.Purposes.Add(p); err != nil {
				return err
			}
		}
		for i := len(dump.Recent) - 1; i >= 0; i-- {
			if err := a.book.Recent.Push(dump.Recent[i]); err != nil {
				return err
			}
		}
		printSuccess("Imported %d reports", len(added))
		return nil
	},
}

func parseImport(data []byte) (legacyDump, error) {
	var dump legacyDump
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err := json.Unmarshal(data, &dump.Reports)
		return dump, err
	}
	if err := json.Unmarshal(data, &dump); err != nil {
		return legacyDump{}, err
	}
	if dump.Reports == nil && dump.Customers == nil && dump.Purposes == nil && dump.Recent == nil {
		return legacyDump{}, errors.New("no " + storage.KeyReports + " or suggestion keys found")
	}
	return dump, nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the HTTP API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		rotate, _ := cmd.Flags().GetBool("rotate")

		var (
			tok string
			err error
		)
		if rotate {
			tok, err = config.RotateAPIToken()
		} else {
			tok, err = config.APIToken()
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		if rotate {
			printWarning("Token rotated; restart a running server to pick it up")
		}
		return nil
	},
}

func init() {
	configTokenCmd.Flags().Bool("rotate", false, "replace the stored token with a new one")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configTokenCmd)
}
