package export

import "time"

// Entry is one scheduled item placed on the wall clock.
type Entry struct {
	ID          string
	Day         int
	Title       string
	Description string
	Location    string
	Destination string
	Start       time.Time
	End         time.Time
}

// Sheet is a titled, ordered list of entries ready for rendering.
type Sheet struct {
	Title   string
	Entries []Entry
	// Stamp is when the export was produced.
	Stamp time.Time
}
