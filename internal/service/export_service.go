package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/models"
	appErrors "github.com/noah-isme/planner-sync-api/pkg/errors"
	"github.com/noah-isme/planner-sync-api/pkg/export"
)

// ExportFormat names a downloadable rendering of a calendar.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatICS ExportFormat = "ics"
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

var exportContentTypes = map[ExportFormat]string{
	ExportFormatICS: "text/calendar; charset=utf-8",
	ExportFormatCSV: "text/csv; charset=utf-8",
	ExportFormatPDF: "application/pdf",
}

type calendarReader interface {
	Calendar(ctx context.Context, id string) (*models.Calendar, error)
}

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// Timezone is the IANA zone event times are laid out in.
	Timezone string
	// UIDDomain suffixes iCalendar UIDs.
	UIDDomain string
}

// ExportResult is a rendered file ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders calendars into downloadable files.
type ExportService struct {
	calendars calendarReader
	renderers map[ExportFormat]sheetRenderer
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. An unknown timezone falls
// back to UTC.
func NewExportService(calendars calendarReader, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if loaded, err := time.LoadLocation(cfg.Timezone); err == nil {
			loc = loaded
		} else {
			logger.Warn("unknown export timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		}
	}
	return &ExportService{
		calendars: calendars,
		renderers: map[ExportFormat]sheetRenderer{
			ExportFormatICS: export.NewICSExporter(cfg.UIDDomain),
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Export renders calendar id in the requested format.
func (s *ExportService) Export(ctx context.Context, id string, format string) (*ExportResult, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = ExportFormatICS
	}
	renderer, ok := s.renderers[f]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unsupported export format %q", format))
	}

	cal, err := s.calendars.Calendar(ctx, id)
	if err != nil {
		return nil, err
	}

	sheet := BuildSheet(cal, s.location)
	sheet.Stamp = s.now().In(s.location)
	body, err := renderer.Render(sheet)
	if err != nil {
		s.logger.Error("calendar export failed", zap.String("calendar_id", id), zap.String("format", string(f)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("%s.%s", sanitizeFilename(cal.Name), f),
		ContentType: exportContentTypes[f],
		Body:        body,
	}, nil
}

// BuildSheet lays the calendar's events out on the wall clock: day
// dayIndex after startDate, plus the event's minute offsets, in loc.
func BuildSheet(cal *models.Calendar, loc *time.Location) export.Sheet {
	if loc == nil {
		loc = time.UTC
	}
	year, month, day := scheduleOrigin(cal.State.StartDate, loc)

	entries := make([]export.Entry, 0, cal.State.EventCount())
	for _, dayIndex := range cal.State.Days() {
		for _, ev := range cal.State.Events[dayIndex] {
			start := time.Date(year, month, day+dayIndex, 0, ev.StartMinutes, 0, 0, loc)
			end := time.Date(year, month, day+dayIndex, 0, ev.EndMinutes, 0, 0, loc)
			if end.Before(start) {
				end = start
			}
			entries = append(entries, export.Entry{
				ID:          ev.ID,
				Day:         dayIndex,
				Title:       ev.Title,
				Description: ev.Description,
				Location:    placeName(ev.Location),
				Destination: placeName(ev.Destination),
				Start:       start,
				End:         end,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})

	return export.Sheet{Title: cal.Name, Entries: entries}
}

// scheduleOrigin returns the calendar date of startDate. Full timestamps
// contribute only their date part.
func scheduleOrigin(startDate string, loc *time.Location) (int, time.Month, int) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, startDate, loc); err == nil {
			return t.Date()
		}
	}
	return time.Now().In(loc).Date()
}

func placeName(p *models.Place) string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng)
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "calendar"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "", "\n", "_", "\r", "_")
	result := replacer.Replace(raw)
	if runes := []rune(result); len(runes) > 100 {
		return string(runes[:100])
	}
	return result
}
