package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

func ev(id string, day, start, end int) models.Event {
	return models.Event{ID: id, DayIndex: day, StartMinutes: start, EndMinutes: end, Title: id}
}

func stateWith(events ...models.Event) models.ScheduleState {
	s := models.NewScheduleState("2025-03-03")
	for _, e := range events {
		s.Events[e.DayIndex] = append(s.Events[e.DayIndex], e)
	}
	return s
}

func TestStatesConcurrentAdditionExample(t *testing.T) {
	base := stateWith(ev("a", 0, 0, 60))
	current := stateWith(ev("a", 0, 0, 60), ev("b", 0, 120, 180))
	incoming := stateWith(ev("a", 0, 0, 90))

	res := States(current, base, incoming)

	want := stateWith(ev("a", 0, 0, 90), ev("b", 0, 120, 180))
	assert.True(t, Equal(want, res.State), "got %+v", res.State.Events)
	assert.Equal(t, []string{"a"}, res.Adopted)
	assert.Empty(t, res.Removed)
}

func TestStatesIncomingEditWins(t *testing.T) {
	base := stateWith(ev("e", 1, 60, 120))
	current := stateWith(ev("e", 1, 60, 120))
	edited := ev("e", 1, 60, 150)
	edited.Location = &models.Place{Name: "Cafe", Lat: 52.1, Lng: 4.3}
	incoming := stateWith(edited)

	res := States(current, base, incoming)
	require.Len(t, res.State.Events[1], 1)
	assert.True(t, EventsEqual(edited, res.State.Events[1][0]))
}

func TestStatesIncomingEditOverwritesConcurrentEdit(t *testing.T) {
	base := stateWith(ev("e", 0, 60, 120))
	theirs := ev("e", 0, 60, 120)
	theirs.Title = "theirs"
	mine := ev("e", 0, 60, 120)
	mine.Title = "mine"

	res := States(stateWith(theirs), base, stateWith(mine))
	assert.Equal(t, "mine", res.State.Events[0][0].Title)
}

func TestStatesUntouchedEventKeepsConcurrentEdit(t *testing.T) {
	base := stateWith(ev("e", 0, 60, 120))
	theirs := ev("e", 0, 60, 120)
	theirs.Color = "red"

	res := States(stateWith(theirs), base, stateWith(ev("e", 0, 60, 120)))
	assert.Equal(t, "red", res.State.Events[0][0].Color)
	assert.Empty(t, res.Adopted)
}

func TestStatesDeleteWins(t *testing.T) {
	base := stateWith(ev("e", 0, 0, 30), ev("f", 0, 60, 90))
	theirs := ev("e", 0, 0, 45)
	current := stateWith(theirs, ev("f", 0, 60, 90))
	incoming := stateWith(ev("f", 0, 60, 90))

	res := States(current, base, incoming)
	assert.True(t, Equal(stateWith(ev("f", 0, 60, 90)), res.State))
	assert.Equal(t, []string{"e"}, res.Removed)
}

func TestStatesPreservesConcurrentAddition(t *testing.T) {
	base := stateWith()
	current := stateWith(ev("f", 2, 0, 30))
	incoming := stateWith()

	res := States(current, base, incoming)
	require.Contains(t, res.State.Events, 2)
	assert.Equal(t, "f", res.State.Events[2][0].ID)
}

func TestStatesMovesEventBetweenDays(t *testing.T) {
	base := stateWith(ev("m", 0, 60, 90))
	current := stateWith(ev("m", 0, 60, 90), ev("n", 0, 0, 30))
	incoming := stateWith(ev("m", 3, 60, 90))

	res := States(current, base, incoming)
	assert.Equal(t, []models.Event{ev("n", 0, 0, 30)}, res.State.Events[0])
	assert.Equal(t, []models.Event{ev("m", 3, 60, 90)}, res.State.Events[3])
	assert.NoError(t, res.State.Validate())
}

func TestStatesScalarTieBreak(t *testing.T) {
	base := stateWith()
	current := stateWith()
	current.ViewMode = models.ViewModeGrid
	current.EndHour = 20
	incoming := stateWith()
	incoming.NumDays = 7

	res := States(current, base, incoming)
	assert.Equal(t, models.ViewModeGrid, res.State.ViewMode)
	assert.Equal(t, 20, res.State.EndHour)
	assert.Equal(t, 7, res.State.NumDays)
	assert.Equal(t, []string{"numDays"}, res.Settings)
}

func TestStatesScalarIncomingChangeWins(t *testing.T) {
	base := stateWith()
	current := stateWith()
	current.StartDate = "2025-04-01"
	incoming := stateWith()
	incoming.StartDate = "2025-05-01"

	res := States(current, base, incoming)
	assert.Equal(t, "2025-05-01", res.State.StartDate)
}

func TestStatesBucketsSortedAndConsistent(t *testing.T) {
	base := stateWith()
	current := stateWith(ev("late", 1, 600, 660), ev("x", 4, 10, 20))
	incoming := stateWith(ev("early", 1, 60, 90), ev("tie-b", 1, 300, 330), ev("tie-a", 1, 300, 360))

	res := States(current, base, incoming)
	ids := []string{}
	for _, e := range res.State.Events[1] {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, ids)
	for day, events := range res.State.Events {
		for _, e := range events {
			assert.Equal(t, day, e.DayIndex)
		}
	}
}

func TestStatesDeterministic(t *testing.T) {
	base := stateWith(ev("a", 0, 0, 60), ev("b", 1, 0, 60))
	current := stateWith(ev("a", 0, 0, 60), ev("b", 1, 0, 60), ev("c", 1, 0, 60), ev("d", 1, 0, 60))
	incoming := stateWith(ev("a", 1, 0, 60), ev("e", 1, 0, 60))

	first := States(current, base, incoming)
	for i := 0; i < 20; i++ {
		again := States(current, base, incoming)
		require.True(t, Equal(first.State, again.State))
		require.Equal(t, first.Adopted, again.Adopted)
	}
}

func TestStatesDoesNotAliasInputs(t *testing.T) {
	loc := &models.Place{Name: "Office"}
	e := ev("a", 0, 0, 60)
	e.Location = loc
	current := stateWith(e)

	res := States(current, stateWith(), stateWith())
	res.State.Events[0][0].Location.Name = "changed"
	assert.Equal(t, "Office", current.Events[0][0].Location.Name)
}

func TestEqualTreatsEmptyAsNil(t *testing.T) {
	a := stateWith()
	b := stateWith()
	b.Events = nil
	assert.True(t, Equal(a, b))

	withRoute := ev("r", 0, 0, 10)
	withRoute.RouteCache = &models.RouteCache{Geometry: [][2]float64{{1, 1}}}
	other := withRoute.Clone()
	other.RouteCache.Geometry[0] = [2]float64{1, 2}
	assert.False(t, EventsEqual(withRoute, other))
}
