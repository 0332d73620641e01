package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

var csvHeaders = []string{"day", "date", "start", "end", "title", "description", "location", "destination", "id"}

// CSVExporter renders a sheet as one CSV row per entry.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the sheet.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, entry := range sheet.Entries {
		record := []string{
			strconv.Itoa(entry.Day),
			entry.Start.Format("2006-01-02"),
			entry.Start.Format("15:04"),
			entry.End.Format("15:04"),
			entry.Title,
			entry.Description,
			entry.Location,
			entry.Destination,
			entry.ID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
