package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestNavigator_StartsToday(t *testing.T) {
	n := NewNavigator("", WithClock(fixedClock))
	assert.Equal(t, day(2025, 3, 14), n.Date())
	assert.Equal(t, ViewDay, n.View())
}

func TestNavigator_PreviousNextByView(t *testing.T) {
	n := NewNavigator(ViewDay, WithClock(fixedClock))

	ch, err := n.Dispatch(Action{Kind: ActionNext})
	require.NoError(t, err)
	assert.True(t, ch.DateChanged)
	assert.Equal(t, day(2025, 3, 15), ch.Date)

	ch, err = n.Dispatch(Action{Kind: ActionPrevious})
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 14), ch.Date)

	_, err = n.Dispatch(Action{Kind: ActionSetView, View: ViewWeek})
	require.NoError(t, err)
	ch, _ = n.Dispatch(Action{Kind: ActionNext})
	assert.Equal(t, day(2025, 3, 21), ch.Date)
}

func TestNavigator_MonthClamps(t *testing.T) {
	n := NewNavigator(ViewMonth, WithClock(fixedClock), WithDate(day(2025, 1, 31)))
	ch, err := n.Dispatch(Action{Kind: ActionNext})
	require.NoError(t, err)
	assert.Equal(t, day(2025, 2, 28), ch.Date)

	ch, _ = n.Dispatch(Action{Kind: ActionPrevious})
	assert.Equal(t, day(2025, 1, 28), ch.Date)
}

func TestNavigator_Today(t *testing.T) {
	n := NewNavigator(ViewDay, WithClock(fixedClock), WithDate(day(2024, 12, 1)))

	ch, err := n.Dispatch(Action{Kind: ActionToday})
	require.NoError(t, err)
	assert.True(t, ch.DateChanged)
	assert.Equal(t, day(2025, 3, 14), ch.Date)

	ch, _ = n.Dispatch(Action{Kind: ActionToday})
	assert.False(t, ch.DateChanged, "already on today")
}

func TestNavigator_SetDateAndView(t *testing.T) {
	n := NewNavigator(ViewDay, WithClock(fixedClock))

	ch, err := n.Dispatch(Action{Kind: ActionSetDate, Date: time.Date(2025, 4, 2, 15, 45, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.True(t, ch.DateChanged)
	assert.Equal(t, day(2025, 4, 2), ch.Date, "time of day is dropped")

	ch, err = n.Dispatch(Action{Kind: ActionSetView, View: ViewMonth})
	require.NoError(t, err)
	assert.False(t, ch.DateChanged)
	assert.Equal(t, ViewMonth, ch.View)

	_, err = n.Dispatch(Action{Kind: ActionSetDate})
	var ip *InvalidParameterError
	assert.ErrorAs(t, err, &ip)

	_, err = n.Dispatch(Action{Kind: ActionSetView, View: "year"})
	assert.ErrorAs(t, err, &ip)
	assert.Equal(t, ViewMonth, n.View(), "failed transition keeps state")

	_, err = n.Dispatch(Action{Kind: "JUMP"})
	assert.ErrorAs(t, err, &ip)
}

func TestNavigator_Range(t *testing.T) {
	n := NewNavigator(ViewWeek, WithClock(fixedClock))
	from, to := n.Range()
	assert.Equal(t, day(2025, 3, 9), from)
	assert.Equal(t, day(2025, 3, 16), to)

	n = NewNavigator(ViewMonth, WithClock(fixedClock))
	from, to = n.Range()
	assert.Equal(t, day(2025, 3, 1), from)
	assert.Equal(t, day(2025, 4, 1), to)

	n = NewNavigator(ViewDay, WithClock(fixedClock))
	from, to = n.Range()
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}

func TestParseActionKind(t *testing.T) {
	k, err := ParseActionKind("prev")
	require.NoError(t, err)
	assert.Equal(t, ActionPrevious, k)

	k, err = ParseActionKind(" next ")
	require.NoError(t, err)
	assert.Equal(t, ActionNext, k)

	_, err = ParseActionKind("later")
	assert.Error(t, err)
}

func TestSlotJSON(t *testing.T) {
	s := SequentialSlot([]Segment{
		{LocationID: 1, Interval: span(6, 0, 6, 30)},
		{LocationID: 2, Interval: span(6, 30, 7, 15)},
	})
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"kind": "sequential",
		"start": "2025-03-14T06:00:00Z",
		"end": "2025-03-14T07:15:00Z",
		"segments": [
			{"location_id": 1, "start": "2025-03-14T06:00:00Z", "end": "2025-03-14T06:30:00Z"},
			{"location_id": 2, "start": "2025-03-14T06:30:00Z", "end": "2025-03-14T07:15:00Z"}
		],
		"booked": false
	}`, string(b))
}
