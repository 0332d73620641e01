package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

// CalendarSummary is one row of the calendar listing.
type CalendarSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateCalendarRequest carries the optional display name of a new calendar.
type CreateCalendarRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// CreateCalendarResponse identifies the created calendar.
type CreateCalendarResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenameCalendarRequest sets a new display name.
type RenameCalendarRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// RenameCalendarResponse echoes the renamed calendar.
type RenameCalendarResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

// CalendarSnapshot is a full read of one calendar. Clients keep State and
// Revision as the base of their next save.
type CalendarSnapshot struct {
	State     models.ScheduleState `json:"state"`
	Revision  int64                `json:"revision"`
	Name      string               `json:"name"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// SaveCalendarRequest is kept raw: the server normalizes whatever the
// client sends instead of rejecting it.
type SaveCalendarRequest struct {
	State        json.RawMessage `json:"state" swaggertype:"object"`
	BaseState    json.RawMessage `json:"baseState,omitempty" swaggertype:"object"`
	BaseRevision json.RawMessage `json:"baseRevision,omitempty" swaggertype:"integer"`
}

// SaveCalendarResponse returns the authoritative state after the save.
type SaveCalendarResponse struct {
	Success  bool                 `json:"success"`
	State    models.ScheduleState `json:"state"`
	Revision int64                `json:"revision"`
	// Merged is true when the save was reconciled against a newer revision.
	Merged bool `json:"merged"`
}

// DeleteCalendarResponse acknowledges a deletion.
type DeleteCalendarResponse struct {
	Success bool `json:"success"`
}
