package export

import (
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/kalambet/visitlog/internal/report"
)

type rgb struct{ r, g, b int }

var (
	pdfGreen     = rgb{39, 174, 96}
	pdfGrey      = rgb{100, 100, 100}
	pdfAltRow    = rgb{236, 240, 241}
	pdfGridLine  = rgb{200, 200, 200}
	pdfTextColor = rgb{0, 0, 0}
)

const (
	pdfMargin     = 14.0
	pdfTableTop   = 30.0
	pdfFontSize   = 9.0
	pdfCellPad    = 1.5
	pdfLineHeight = 4.0
	pdfFont       = "Helvetica"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Sr No", 14},
	{"Date", 22},
	{"Customer", 34},
	{"Report No", 32},
	{"Contact Person", 28},
	{"Contact No", 24},
	{"Purpose", 28},
}

// PDFRenderer draws an A4 portrait grid table with a title and period
// subtitle. Cell text wraps and the header row repeats on every page.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(doc.Title+" "+doc.Period, true)
	pdf.SetCreator("visitlog", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont(pdfFont, "", 20)
	setText(pdf, pdfGreen)
	pdf.SetXY(0, 9)
	pdf.CellFormat(pageW, 9, tr(doc.Title), "", 1, "C", false, 0, "")

	pdf.SetFont(pdfFont, "", 12)
	setText(pdf, pdfGrey)
	pdf.SetXY(0, 18)
	pdf.CellFormat(pageW, 6, tr(doc.Period), "", 1, "C", false, 0, "")

	pdf.SetFont(pdfFont, "", pdfFontSize)
	pdf.SetLineWidth(0.1)
	pdf.SetDrawColor(pdfGridLine.r, pdfGridLine.g, pdfGridLine.b)

	header := make([]string, len(pdfColumns))
	for i, c := range pdfColumns {
		header[i] = c.title
	}

	pdf.SetY(pdfTableTop)
	drawRow(pdf, tr, header, true, false)
	bottom := pageH - pdfMargin
	for i, r := range doc.Reports {
		cells := pdfRow(r)
		pdf.SetFont(pdfFont, "", pdfFontSize)
		if pdf.GetY()+rowHeight(pdf, tr, cells) > bottom {
			pdf.AddPage()
			pdf.SetY(pdfMargin)
			drawRow(pdf, tr, header, true, false)
		}
		drawRow(pdf, tr, cells, false, i%2 == 1)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// pdfRow maps a report to table cells. Empty contact fields show as "-".
func pdfRow(r report.Report) []string {
	return []string{
		r.SerialNo,
		report.DisplayDate(r.Date),
		r.CustomerName,
		r.ReportNo,
		orDash(r.ContactPerson),
		orDash(r.ContactNo),
		r.VisitingPurpose,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

func wrap(pdf *fpdf.Fpdf, tr func(string) string, text string, width float64) []string {
	lines := pdf.SplitText(tr(text), width-2*pdfCellPad)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func rowHeight(pdf *fpdf.Fpdf, tr func(string) string, cells []string) float64 {
	maxLines := 1
	for i, c := range cells {
		if n := len(wrap(pdf, tr, c, pdfColumns[i].width)); n > maxLines {
			maxLines = n
		}
	}
	return float64(maxLines)*pdfLineHeight + 2*pdfCellPad
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, cells []string, header, alternate bool) {
	style := "D"
	switch {
	case header:
		pdf.SetFillColor(pdfGreen.r, pdfGreen.g, pdfGreen.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont(pdfFont, "B", pdfFontSize)
		style = "FD"
	case alternate:
		pdf.SetFillColor(pdfAltRow.r, pdfAltRow.g, pdfAltRow.b)
		setText(pdf, pdfTextColor)
		pdf.SetFont(pdfFont, "", pdfFontSize)
		style = "FD"
	default:
		setText(pdf, pdfTextColor)
		pdf.SetFont(pdfFont, "", pdfFontSize)
	}

	h := rowHeight(pdf, tr, cells)
	y := pdf.GetY()
	x := pdfMargin

	for i, c := range cells {
		width := pdfColumns[i].width
		pdf.Rect(x, y, width, h, style)
		for j, line := range wrap(pdf, tr, c, width) {
			pdf.SetXY(x+pdfCellPad, y+pdfCellPad+float64(j)*pdfLineHeight)
			pdf.CellFormat(width-2*pdfCellPad, pdfLineHeight, line, "", 0, "L", false, 0, "")
		}
		x += width
	}
	pdf.SetXY(pdfMargin, y+h)
}
