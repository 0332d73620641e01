package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a sheet as a printable agenda grouped by day.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title band, one header per day and
// a row per entry.
func (e *PDFExporter) Render(sheet Sheet) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(sheet.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Exported "+sheet.Stamp.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(sheet.Entries) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No events scheduled.", "", 1, "", false, 0, "")
	}

	currentDay := -1
	first := true
	for _, entry := range sheet.Entries {
		if first || entry.Day != currentDay {
			first = false
			currentDay = entry.Day
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 11)
			pdf.SetFillColor(230, 230, 230)
			label := fmt.Sprintf("Day %d - %s", entry.Day+1, entry.Start.Format("Monday 02 January 2006"))
			pdf.CellFormat(0, 8, label, "1", 1, "", true, 0, "")
		}

		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(30, 7, entry.Start.Format("15:04")+" - "+entry.End.Format("15:04"), "1", 0, "", false, 0, "")
		pdf.CellFormat(80, 7, tr(entry.Title), "1", 0, "", false, 0, "")
		pdf.CellFormat(80, 7, tr(entryLocation(entry)), "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
