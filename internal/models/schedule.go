package models

import (
	"fmt"
	"sort"
)

// ViewMode selects how the client lays out day columns.
type ViewMode string

// Supported view modes.
const (
	ViewModeRow  ViewMode = "row"
	ViewModeGrid ViewMode = "grid"
	ViewModeDay  ViewMode = "day"
)

// Valid reports whether v is a known view mode.
func (v ViewMode) Valid() bool {
	switch v {
	case ViewModeRow, ViewModeGrid, ViewModeDay:
		return true
	default:
		return false
	}
}

// RouteMode controls how a route between location and destination is drawn.
type RouteMode string

// Supported route modes.
const (
	RouteModeSimple  RouteMode = "simple"
	RouteModePrecise RouteMode = "precise"
	RouteModeHidden  RouteMode = "hidden"
)

// Valid reports whether r is a known route mode.
func (r RouteMode) Valid() bool {
	switch r {
	case RouteModeSimple, RouteModePrecise, RouteModeHidden:
		return true
	default:
		return false
	}
}

// Schedule defaults applied to new calendars and to malformed input.
const (
	DefaultNumDays   = 5
	DefaultStartHour = 7
	DefaultEndHour   = 22
	DefaultViewMode  = ViewModeRow

	// DateLayout is the canonical startDate format.
	DateLayout = "2006-01-02"
)

// Place is a named geographic point.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Coordinate is a bare latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteCache stores route geometry along with the endpoints it was
// computed for, so clients can tell when it went stale.
type RouteCache struct {
	Geometry [][2]float64 `json:"geometry"`
	From     Coordinate   `json:"from"`
	To       Coordinate   `json:"to"`
}

// Event is a single entry on the schedule.
type Event struct {
	ID           string      `json:"id"`
	DayIndex     int         `json:"dayIndex"`
	StartMinutes int         `json:"startMinutes"`
	EndMinutes   int         `json:"endMinutes"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Color        string      `json:"color"`
	Location     *Place      `json:"location,omitempty"`
	Destination  *Place      `json:"destination,omitempty"`
	RouteMode    RouteMode   `json:"routeMode,omitempty"`
	RouteCache   *RouteCache `json:"routeCache,omitempty"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	if e.Location != nil {
		loc := *e.Location
		out.Location = &loc
	}
	if e.Destination != nil {
		dst := *e.Destination
		out.Destination = &dst
	}
	if e.RouteCache != nil {
		rc := *e.RouteCache
		if e.RouteCache.Geometry != nil {
			rc.Geometry = append([][2]float64(nil), e.RouteCache.Geometry...)
		}
		out.RouteCache = &rc
	}
	return out
}

// ScheduleState is the full client-visible state of one calendar.
type ScheduleState struct {
	NumDays   int             `json:"numDays"`
	StartDate string          `json:"startDate"`
	StartHour int             `json:"startHour"`
	EndHour   int             `json:"endHour"`
	ViewMode  ViewMode        `json:"viewMode"`
	Events    map[int][]Event `json:"events"`
}

// NewScheduleState returns the default state starting on the given date.
func NewScheduleState(startDate string) ScheduleState {
	return ScheduleState{
		NumDays:   DefaultNumDays,
		StartDate: startDate,
		StartHour: DefaultStartHour,
		EndHour:   DefaultEndHour,
		ViewMode:  DefaultViewMode,
		Events:    map[int][]Event{},
	}
}

// Clone returns a deep copy of the state.
func (s ScheduleState) Clone() ScheduleState {
	out := s
	out.Events = make(map[int][]Event, len(s.Events))
	for day, events := range s.Events {
		copied := make([]Event, len(events))
		for i, ev := range events {
			copied[i] = ev.Clone()
		}
		out.Events[day] = copied
	}
	return out
}

// EventCount returns the number of events across all days.
func (s ScheduleState) EventCount() int {
	total := 0
	for _, events := range s.Events {
		total += len(events)
	}
	return total
}

// Days returns the populated day indexes in ascending order.
func (s ScheduleState) Days() []int {
	days := make([]int, 0, len(s.Events))
	for day := range s.Events {
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

// SortEvents orders a day bucket by start time, then by id.
func SortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartMinutes != events[j].StartMinutes {
			return events[i].StartMinutes < events[j].StartMinutes
		}
		return events[i].ID < events[j].ID
	})
}

// Validate checks the structural invariants every normalized state holds:
// known view mode, positive day count, events filed under their own
// dayIndex, non-empty and unique ids, no empty day buckets.
func (s ScheduleState) Validate() error {
	if s.NumDays <= 0 {
		return fmt.Errorf("numDays must be positive, got %d", s.NumDays)
	}
	if !s.ViewMode.Valid() {
		return fmt.Errorf("unknown viewMode %q", s.ViewMode)
	}
	seen := make(map[string]int, s.EventCount())
	for day, events := range s.Events {
		if len(events) == 0 {
			return fmt.Errorf("day %d has an empty bucket", day)
		}
		for _, ev := range events {
			if ev.ID == "" {
				return fmt.Errorf("day %d holds an event without id", day)
			}
			if ev.DayIndex != day {
				return fmt.Errorf("event %s has dayIndex %d but is filed under day %d", ev.ID, ev.DayIndex, day)
			}
			if prev, dup := seen[ev.ID]; dup {
				return fmt.Errorf("event id %s appears on day %d and day %d", ev.ID, prev, day)
			}
			seen[ev.ID] = day
		}
	}
	return nil
}
