package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kalambet/visitlog/internal/report"
)

// SheetName is the single worksheet of an XLSX export.
const SheetName = "Visit Reports"

var xlsxHeaders = []any{
	"Serial No", "Date", "Customer Name", "Report No",
	"Contact Person", "Contact No", "Visiting Purpose",
}

// XLSXRenderer writes one worksheet with a header row and one row per report.
type XLSXRenderer struct{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Render(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range doc.Reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "G", 18); err != nil {
		return err
	}
	return f.Write(w)
}

// xlsxRow maps a report to a sheet row. Empty contact fields stay empty.
func xlsxRow(r report.Report) []any {
	return []any{
		r.SerialNo,
		report.DisplayDate(r.Date),
		r.CustomerName,
		r.ReportNo,
		r.ContactPerson,
		r.ContactNo,
		r.VisitingPurpose,
	}
}
