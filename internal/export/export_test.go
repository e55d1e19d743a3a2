package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/query"
	"github.com/kalambet/visitlog/internal/report"
)

func fixture() []report.Report {
	return []report.Report{
		{ID: "a", SerialNo: "3", Date: "2024-05-10", CustomerName: "Globex", ReportNo: "DVG 2024-25/MAY 10", VisitingPurpose: "Install"},
		{ID: "b", SerialNo: "1", Date: "2024-05-02", CustomerName: "Acme & Sons", ReportNo: "DVG 2024-25/MAY 02", ContactPerson: "Wile", ContactNo: "555-0100", VisitingPurpose: "Demo"},
		{ID: "c", SerialNo: "2", Date: "2024-04-30", CustomerName: "Initech", ReportNo: "DVG 2024-25/APR 30", VisitingPurpose: "Service"},
		{ID: "d", SerialNo: "abc", Date: "2024-05-20", CustomerName: "Hooli", ReportNo: "DVG 2024-25/MAY 20", VisitingPurpose: "Audit"},
	}
}

func readAll(t *testing.T, s blob.Store, name string) []byte {
	t.Helper()
	_, rc, err := s.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return data
}

func TestPrepare_FiltersAndSortsAscending(t *testing.T) {
	rows, err := Prepare(fixture(), 5, 2024, query.ColumnSerialNo)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.SerialNo)
	}
	if want := []string{"abc", "1", "3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("serials = %v, want %v", got, want)
	}
}

func TestPrepare_Empty(t *testing.T) {
	if _, err := Prepare(fixture(), 1, 2030, query.ColumnDate); !errors.Is(err, ErrEmptyExportSet) {
		t.Errorf("err = %v, want ErrEmptyExportSet", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{FormatPDF, "Visit_Reports_May_2024.pdf"},
		{FormatXLSX, "Visit_Reports_May_2024.xlsx"},
		{FormatJSON, "Visit_Reports_May_2024.json"},
	}
	for _, tt := range tests {
		if got := FileName(tt.f, 5, 2024); got != tt.want {
			t.Errorf("FileName(%s) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestRequestValidate(t *testing.T) {
	r := Request{Format: "PDF", Month: 5, Year: 2024}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.Format != FormatPDF || r.SortBy != query.ColumnDate {
		t.Errorf("defaults not applied: %+v", r)
	}

	bad := []Request{
		{Format: "docx", Month: 5, Year: 2024},
		{Format: FormatPDF, Month: 0, Year: 2024},
		{Format: FormatPDF, Month: 13, Year: 2024},
		{Format: FormatPDF, Month: 5, Year: 0},
		{Format: FormatPDF, Month: 5, Year: 2024, SortBy: "contactNo"},
	}
	for _, b := range bad {
		if err := b.Validate(); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidRequest", b, err)
		}
	}
}

func TestExport_EmptySetWritesNothing(t *testing.T) {
	store := blob.NewMemory()
	e := NewExporter(store)

	for _, f := range Formats() {
		_, err := e.Export(context.Background(), fixture(), Request{Format: f, Month: 12, Year: 2024})
		if !errors.Is(err, ErrEmptyExportSet) {
			t.Errorf("%s: err = %v, want ErrEmptyExportSet", f, err)
		}
	}
	if list, _ := store.List(context.Background(), ""); len(list) != 0 {
		t.Errorf("files written for empty set: %+v", list)
	}
}

func TestExport_JSON(t *testing.T) {
	store := blob.NewMemory()
	e := NewExporter(store)

	res, err := e.Export(context.Background(), fixture(), Request{Format: FormatJSON, Month: 5, Year: 2024, SortBy: query.ColumnCustomerName})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Name != "Visit_Reports_May_2024.json" || res.Rows != 3 || res.Format != FormatJSON {
		t.Errorf("Result = %+v", res)
	}

	data := readAll(t, store, res.Name)
	if int64(len(data)) != res.Size {
		t.Errorf("Size = %d, stored %d bytes", res.Size, len(data))
	}
	if !strings.Contains(string(data), "\n  {\n    \"id\": \"b\",\n    \"serialNo\": \"1\"") {
		t.Errorf("JSON not 2-space indented with entity field names:\n%s", data)
	}
	if !strings.Contains(string(data), "Acme & Sons") {
		t.Error("ampersand was escaped")
	}

	var got []report.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	var names []string
	for _, r := range got {
		names = append(names, r.CustomerName)
	}
	if want := []string{"Acme & Sons", "Globex", "Hooli"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestExport_XLSX(t *testing.T) {
	store := blob.NewMemory()
	e := NewExporter(store)

	res, err := e.Export(context.Background(), fixture(), Request{Format: FormatXLSX, Month: 5, Year: 2024})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(readAll(t, store, res.Name)))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Errorf("sheets = %v, want [%s]", sheets, SheetName)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != res.Rows+1 {
		t.Fatalf("rows = %d, want %d (header + %d)", len(rows), res.Rows+1, res.Rows)
	}
	wantHeader := []string{"Serial No", "Date", "Customer Name", "Report No", "Contact Person", "Contact No", "Visiting Purpose"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}
	// Sorted by date: May 02, May 10, May 20.
	want := []string{"1", "02/05/2024", "Acme & Sons", "DVG 2024-25/MAY 02", "Wile", "555-0100", "Demo"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	if rows[2][0] != "3" || rows[3][0] != "abc" {
		t.Errorf("order = %v, %v", rows[2][0], rows[3][0])
	}
	if len(rows[2]) > 4 && rows[2][4] != "" {
		t.Errorf("empty contact person rendered as %q", rows[2][4])
	}
}

func TestExport_PDF(t *testing.T) {
	store := blob.NewMemory()
	e := NewExporter(store)

	res, err := e.Export(context.Background(), fixture(), Request{Format: FormatPDF, Month: 5, Year: 2024})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Name != "Visit_Reports_May_2024.pdf" {
		t.Errorf("Name = %q", res.Name)
	}
	data := readAll(t, store, res.Name)
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", data[:min(len(data), 16)])
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("pdf.NewReader: %v", err)
	}
	if r.NumPage() != 1 {
		t.Errorf("pages = %d, want 1", r.NumPage())
	}
}

func TestExport_PDFPaginates(t *testing.T) {
	var many []report.Report
	for i := 1; i <= 120; i++ {
		many = append(many, report.Report{
			SerialNo:        fmt.Sprint(i),
			Date:            fmt.Sprintf("2024-05-%02d", i%28+1),
			CustomerName:    "Customer with a fairly long name that wraps in its column",
			ReportNo:        "DVG 2024-25/MAY 01",
			VisitingPurpose: "Routine maintenance visit",
		})
	}

	var buf bytes.Buffer
	n, err := NewExporter(blob.NewMemory()).Render(&buf, many, Request{Format: FormatPDF, Month: 5, Year: 2024})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n != 120 {
		t.Errorf("rows = %d, want 120", n)
	}
	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("pdf.NewReader: %v", err)
	}
	if r.NumPage() < 2 {
		t.Errorf("pages = %d, want the table to span several pages", r.NumPage())
	}
}

func TestExport_OverwritesSamePeriod(t *testing.T) {
	store := blob.NewMemory()
	e := NewExporter(store)
	ctx := context.Background()

	all := fixture()
	if _, err := e.Export(ctx, all, Request{Format: FormatJSON, Month: 5, Year: 2024}); err != nil {
		t.Fatalf("first export: %v", err)
	}
	all = append(all, report.Report{SerialNo: "9", Date: "2024-05-25", CustomerName: "New", VisitingPurpose: "Demo"})
	res, err := e.Export(ctx, all, Request{Format: FormatJSON, Month: 5, Year: 2024})
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if res.Rows != 4 {
		t.Errorf("Rows = %d, want 4", res.Rows)
	}
	list, _ := e.List(ctx)
	if len(list) != 1 {
		t.Errorf("List = %+v, want one file", list)
	}
}

func TestExport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExporter(blob.NewMemory()).Export(ctx, fixture(), Request{Format: FormatJSON, Month: 5, Year: 2024}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPDFRow_DashesEmptyContacts(t *testing.T) {
	row := pdfRow(report.Report{SerialNo: "1", Date: "2024-05-02", CustomerName: "Acme", ReportNo: "X", VisitingPurpose: "Demo"})
	want := []string{"1", "02/05/2024", "Acme", "X", "-", "-", "Demo"}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("pdfRow = %v, want %v", row, want)
	}
}
