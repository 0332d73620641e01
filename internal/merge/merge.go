// Package merge reconciles concurrent edits to a calendar's schedule.
//
// A client saves an incoming state together with the base state it started
// from. When another save landed in between, the server holds a current
// state that differs from base. States combines the three so that
// everything the client changed relative to base wins, and everything it
// did not touch keeps the current value.
//
// The package is pure: no I/O, no validation. Callers hand it normalized
// states only.
package merge

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

// Result is a merged state plus a summary of how each event id resolved.
type Result struct {
	State models.ScheduleState
	// Adopted lists ids whose incoming version was taken (edits and creations).
	Adopted []string
	// Removed lists ids the client deleted.
	Removed []string
	// Settings lists the scalar settings taken from incoming.
	Settings []string
}

// Equal reports whether two states are structurally equal. Nil and empty
// collections compare equal.
func Equal(a, b models.ScheduleState) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// EventsEqual reports whether two events are structurally equal, including
// the nested places and route cache.
func EventsEqual(a, b models.Event) bool {
	return cmp.Equal(a, b, equalOpts...)
}

// States performs the three-way merge of current, base and incoming.
func States(current, base, incoming models.ScheduleState) Result {
	var res Result
	merged := mergeSettings(current, base, incoming, &res)

	working := Flatten(current)
	baseEvents := Flatten(base)
	incomingEvents := Flatten(incoming)

	for id, ev := range incomingEvents {
		prev, existed := baseEvents[id]
		if existed && EventsEqual(prev, ev) {
			continue
		}
		working[id] = ev
		res.Adopted = append(res.Adopted, id)
	}
	for id := range baseEvents {
		if _, kept := incomingEvents[id]; kept {
			continue
		}
		delete(working, id)
		res.Removed = append(res.Removed, id)
	}

	merged.Events = Group(working)
	sort.Strings(res.Adopted)
	sort.Strings(res.Removed)
	res.State = merged
	return res
}

func mergeSettings(current, base, incoming models.ScheduleState, res *Result) models.ScheduleState {
	out := models.ScheduleState{
		NumDays:   current.NumDays,
		StartDate: current.StartDate,
		StartHour: current.StartHour,
		EndHour:   current.EndHour,
		ViewMode:  current.ViewMode,
	}
	if incoming.NumDays != base.NumDays {
		out.NumDays = incoming.NumDays
		res.Settings = append(res.Settings, "numDays")
	}
	if incoming.StartDate != base.StartDate {
		out.StartDate = incoming.StartDate
		res.Settings = append(res.Settings, "startDate")
	}
	if incoming.StartHour != base.StartHour {
		out.StartHour = incoming.StartHour
		res.Settings = append(res.Settings, "startHour")
	}
	if incoming.EndHour != base.EndHour {
		out.EndHour = incoming.EndHour
		res.Settings = append(res.Settings, "endHour")
	}
	if incoming.ViewMode != base.ViewMode {
		out.ViewMode = incoming.ViewMode
		res.Settings = append(res.Settings, "viewMode")
	}
	return out
}

// Flatten indexes every event of the state by id, ignoring which bucket
// it was filed under. Events are deep-copied.
func Flatten(state models.ScheduleState) map[string]models.Event {
	out := make(map[string]models.Event, state.EventCount())
	for _, events := range state.Events {
		for _, ev := range events {
			out[ev.ID] = ev.Clone()
		}
	}
	return out
}

// Group files events into day buckets by their own dayIndex and orders
// each bucket by start time. Equal start times are ordered by id so the
// result does not depend on map iteration order.
func Group(events map[string]models.Event) map[int][]models.Event {
	out := make(map[int][]models.Event)
	for _, ev := range events {
		out[ev.DayIndex] = append(out[ev.DayIndex], ev)
	}
	for _, bucket := range out {
		models.SortEvents(bucket)
	}
	return out
}
