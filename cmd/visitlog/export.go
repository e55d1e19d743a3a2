package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/export"
	"github.com/kalambet/visitlog/internal/query"
)

var exportCmd = &cobra.Command{
	Use:   "export <pdf|xlsx|json>",
	Short: "Export one month of reports",
	Long: `Export the reports of one month, sorted ascending by the chosen column, to
the configured export destination as Visit_Reports_<Month>_<Year>.<ext>.

Examples:
  visitlog export pdf
  visitlog export xlsx --month 5 --year 2024 --sort customerName`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(args[0])
		if err != nil {
			return fmt.Errorf("%w (want %s)", err, formatList())
		}

		month, _ := cmd.Flags().GetInt("month")
		year, _ := cmd.Flags().GetInt("year")
		sortBy, _ := cmd.Flags().GetString("sort")

		today := now()
		if month == 0 {
			month = int(today.Month())
		}
		if year == 0 {
			year = today.Year()
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if sortBy == "" {
			sortBy = a.cfg.Export.Sort
		}

		req := export.Request{Format: format, Month: month, Year: year, SortBy: query.Column(sortBy)}
		res, err := a.exporter.Export(cmd.Context(), a.book.Reports.List(), req)
		if errors.Is(err, export.ErrEmptyExportSet) {
			printWarning("No reports found for %s.", export.Period(month, year))
			return nil
		}
		if err != nil {
			return err
		}

		printSuccess("Exported %d reports to %s (%s)", res.Rows, res.Name, humanize.Bytes(uint64(res.Size)))
		printStatus("Destination", "%s", a.cfg.Export.Driver)
		if fs, ok := a.exporter.Store().(*blob.FS); ok {
			printStatus("Path", "%s", filepath.Join(fs.Root(), res.Name))
		}
		return nil
	},
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored exports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.exporter.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No exports yet.")
			return nil
		}
		printExports(cmd.OutOrStdout(), files, time.Now())
		return nil
	},
}

func formatList() string {
	var names []string
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func init() {
	exportCmd.Flags().Int("month", 0, "month to export, 1-12 (default current month)")
	exportCmd.Flags().Int("year", 0, "year to export (default current year)")
	exportCmd.Flags().String("sort", "", "sort column (default export.sort from config)")
	exportCmd.AddCommand(exportListCmd)
}
