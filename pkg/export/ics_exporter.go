package export

import (
	ical "github.com/arran4/golang-ical"
)

const icsProductID = "-//planner-sync-api//schedule export//EN"

// ICSExporter renders a sheet as an iCalendar feed, one VEVENT per entry.
type ICSExporter struct {
	// UIDDomain is appended to entry ids to form globally unique UIDs.
	UIDDomain string
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter(uidDomain string) *ICSExporter {
	if uidDomain == "" {
		uidDomain = "planner.local"
	}
	return &ICSExporter{UIDDomain: uidDomain}
}

// Render serializes the sheet.
func (e *ICSExporter) Render(sheet Sheet) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(sheet.Title)

	for _, entry := range sheet.Entries {
		ev := cal.AddEvent(entry.ID + "@" + e.UIDDomain)
		ev.SetDtStampTime(sheet.Stamp)
		ev.SetStartAt(entry.Start)
		ev.SetEndAt(entry.End)
		ev.SetSummary(entry.Title)
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		if loc := entryLocation(entry); loc != "" {
			ev.SetLocation(loc)
		}
	}
	return []byte(cal.Serialize()), nil
}

func entryLocation(entry Entry) string {
	switch {
	case entry.Location != "" && entry.Destination != "":
		return entry.Location + " -> " + entry.Destination
	case entry.Destination != "":
		return entry.Destination
	default:
		return entry.Location
	}
}
