package service

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

// Numbers beyond this magnitude are treated as garbage rather than
// converted to int.
const maxNumeric = 1e9

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NormalizeState turns an arbitrary client JSON document into a well
// typed schedule state. Anything missing or malformed falls back to its
// default; it never fails.
func NormalizeState(raw json.RawMessage, now time.Time) models.ScheduleState {
	state := models.NewScheduleState(now.Format(models.DateLayout))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return state
	}

	if n, ok := number(fields["numDays"]); ok {
		if days := int(math.Round(n)); days > 0 {
			state.NumDays = days
		}
	}
	if d, ok := text(fields["startDate"]); ok && validDate(d) {
		state.StartDate = d
	}
	if h, ok := number(fields["startHour"]); ok {
		state.StartHour = int(h)
	}
	if h, ok := number(fields["endHour"]); ok {
		state.EndHour = int(h)
	}
	if v, ok := text(fields["viewMode"]); ok && models.ViewMode(v).Valid() {
		state.ViewMode = models.ViewMode(v)
	}
	state.Events = normalizeEvents(fields["events"])

	return state
}

// normalizeEvents accepts a day-keyed object (or an array indexed by day)
// of event lists. Events are re-filed by their own dayIndex; the first
// occurrence of an id wins.
func normalizeEvents(raw json.RawMessage) map[int][]models.Event {
	out := make(map[int][]models.Event)

	buckets := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &buckets); err != nil {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return out
		}
		for i, bucket := range list {
			buckets[strconv.Itoa(i)] = bucket
		}
	}

	seen := make(map[string]struct{})
	for _, key := range sortedDayKeys(buckets) {
		var items []json.RawMessage
		if err := json.Unmarshal(buckets[key], &items); err != nil {
			continue
		}
		fallbackDay, keyErr := strconv.Atoi(strings.TrimSpace(key))
		for _, item := range items {
			ev, ok := normalizeEvent(item, fallbackDay, keyErr == nil)
			if !ok {
				continue
			}
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			out[ev.DayIndex] = append(out[ev.DayIndex], ev)
		}
	}

	for _, bucket := range out {
		models.SortEvents(bucket)
	}
	return out
}

func normalizeEvent(raw json.RawMessage, fallbackDay int, hasFallback bool) (models.Event, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.Event{}, false
	}

	id := identifier(fields["id"])
	if id == "" {
		return models.Event{}, false
	}

	ev := models.Event{ID: id}
	switch day, ok := number(fields["dayIndex"]); {
	case ok:
		ev.DayIndex = int(day)
	case hasFallback:
		ev.DayIndex = fallbackDay
	default:
		return models.Event{}, false
	}

	if start, ok := number(fields["startMinutes"]); ok {
		ev.StartMinutes = int(start)
	}
	if end, ok := number(fields["endMinutes"]); ok {
		ev.EndMinutes = int(end)
	} else {
		ev.EndMinutes = ev.StartMinutes + 60
	}

	ev.Title, _ = text(fields["title"])
	ev.Description, _ = text(fields["description"])
	ev.Color, _ = text(fields["color"])
	ev.Location = place(fields["location"])
	ev.Destination = place(fields["destination"])
	if mode, ok := text(fields["routeMode"]); ok && models.RouteMode(mode).Valid() {
		ev.RouteMode = models.RouteMode(mode)
	}
	ev.RouteCache = routeCache(fields["routeCache"])

	return ev, true
}

func place(raw json.RawMessage) *models.Place {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}
	lat, okLat := number(fields["lat"])
	lng, okLng := number(fields["lng"])
	if !okLat || !okLng {
		return nil
	}
	name, _ := text(fields["name"])
	return &models.Place{Name: name, Lat: lat, Lng: lng}
}

func routeCache(raw json.RawMessage) *models.RouteCache {
	var payload struct {
		Geometry [][2]float64       `json:"geometry"`
		From     *models.Coordinate `json:"from"`
		To       *models.Coordinate `json:"to"`
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.From == nil || payload.To == nil {
		return nil
	}
	return &models.RouteCache{Geometry: payload.Geometry, From: *payload.From, To: *payload.To}
}

// sortedDayKeys orders numeric keys numerically, then everything else.
func sortedDayKeys(buckets map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(strings.TrimSpace(keys[i]))
		b, errB := strconv.Atoi(strings.TrimSpace(keys[j]))
		switch {
		case errA == nil && errB == nil && a != b:
			return a < b
		case errA == nil && errB != nil:
			return true
		case errA != nil && errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func number(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxNumeric {
		return 0, false
	}
	return f, true
}

func text(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// identifier accepts string ids and numeric ids (timestamps are common).
func identifier(raw json.RawMessage) string {
	if s, ok := text(raw); ok {
		return strings.TrimSpace(s)
	}
	if isNull(raw) {
		return ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func validDate(raw string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, raw); err == nil {
			return true
		}
	}
	return false
}

// isNull reports a missing value or an explicit JSON null, both of which
// decode without error into scalars.
func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
