package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSheet() Sheet {
	day0 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return Sheet{
		Title: "Trip",
		Stamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Entries: []Entry{
			{ID: "a", Day: 0, Title: "Breakfast", Location: "Hotel", Start: day0.Add(8 * time.Hour), End: day0.Add(9 * time.Hour)},
			{ID: "b", Day: 1, Title: "Drive", Description: "scenic, slow", Location: "Hotel", Destination: "Lake", Start: day0.Add(34 * time.Hour), End: day0.Add(36 * time.Hour)},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleSheet())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, []string{"0", "2026-03-02", "08:00", "09:00", "Breakfast", "", "Hotel", "", "a"}, rows[1])
	assert.Equal(t, "2026-03-03", rows[2][1])
	assert.Equal(t, "scenic, slow", rows[2][5])
}

func TestCSVExporterEmptySheet(t *testing.T) {
	out, err := NewCSVExporter().Render(Sheet{Title: "empty"})
	require.NoError(t, err)
	assert.Equal(t, "day,date,start,end,title,description,location,destination,id\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleSheet())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := NewPDFExporter().Render(Sheet{Title: "empty"})
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}

func TestICSExporterRender(t *testing.T) {
	out, err := NewICSExporter("example.test").Render(sampleSheet())
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "a@example.test", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Breakfast", first.GetProperty(ical.ComponentPropertySummary).Value)
	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)))

	second := events[1]
	assert.Equal(t, "Hotel -> Lake", second.GetProperty(ical.ComponentPropertyLocation).Value)
}
