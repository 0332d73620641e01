package models

import "time"

// Calendar is the authoritative in-memory entry for one calendar. Values
// are never mutated after they are published to the registry; every
// change produces a new Calendar.
type Calendar struct {
	ID        string
	Name      string
	State     ScheduleState
	Revision  int64
	UpdatedAt time.Time
}

// Record converts the calendar into its durable form.
func (c *Calendar) Record() CalendarRecord {
	return CalendarRecord{ID: c.ID, Name: c.Name, State: c.State, UpdatedAt: c.UpdatedAt}
}

// CalendarRecord is what gets persisted per calendar. Revisions are
// session scoped and deliberately absent.
type CalendarRecord struct {
	ID        string        `json:"-"`
	Name      string        `json:"name"`
	State     ScheduleState `json:"state"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
