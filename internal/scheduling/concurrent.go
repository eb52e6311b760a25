package scheduling

import (
	"iter"
	"time"
)

// DefaultConcurrentLimit caps how many slots one concurrent query yields.
const DefaultConcurrentLimit = 5

// ConcurrentQuery asks for intervals of one fixed Duration during which
// every location in LocationIDs is free on Day.
type ConcurrentQuery struct {
	Day         time.Time
	Duration    time.Duration
	LocationIDs []uint64
	// Bookings maps a location to its booked intervals. Missing keys mean
	// the location has no bookings.
	Bookings map[uint64][]Interval
	Window   Window
	// Step is how far the cursor moves after a rejected candidate.
	// Zero means DefaultGranularity.
	Step time.Duration
	// Limit is the maximum number of slots. Zero means DefaultConcurrentLimit.
	Limit int
}

// Concurrent enumerates free slots for q in increasing start order. The
// cursor starts at opening time; an accepted slot moves it to the slot's
// end so emitted slots never overlap, a rejected one moves it by Step.
// Enumeration stops at Limit or when a candidate would end after closing.
//
// The returned sequence is lazy and restartable: every range over it
// recomputes from q. An empty location set or non-positive duration
// yields nothing.
func Concurrent(q ConcurrentQuery) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if q.Duration <= 0 || len(q.LocationIDs) == 0 {
			return
		}
		step := stepOrDefault(q.Step)
		limit := q.Limit
		if limit <= 0 {
			limit = DefaultConcurrentLimit
		}
		cursor, closing := q.Window.On(q.Day)
		for found := 0; found < limit; {
			candidate := Interval{Start: cursor, End: cursor.Add(q.Duration)}
			if candidate.End.After(closing) {
				return
			}
			if !q.free(candidate) {
				cursor = cursor.Add(step)
				continue
			}
			if !yield(SimpleSlot(candidate, q.LocationIDs)) {
				return
			}
			found++
			cursor = candidate.End
		}
	}
}

func (q ConcurrentQuery) free(iv Interval) bool {
	for _, id := range q.LocationIDs {
		if _, hit := firstOverlap(iv, q.Bookings[id]); hit {
			return false
		}
	}
	return true
}

func stepOrDefault(step time.Duration) time.Duration {
	if step <= 0 {
		return DefaultGranularity
	}
	return step
}
