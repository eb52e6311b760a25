package scheduling

import (
	"iter"
	"time"
)

// DefaultSequentialLimit caps how many chains one sequential query yields.
// The search keeps going until it holds more than seven.
const DefaultSequentialLimit = 8

// ChainStep is one location in a sequential booking together with the
// time it needs.
type ChainStep struct {
	LocationID uint64
	Duration   time.Duration
}

// SequentialQuery asks for anchors on Day at which the locations in Chain
// can be booked one after another.
type SequentialQuery struct {
	Day      time.Time
	Chain    []ChainStep
	Bookings map[uint64][]Interval
	Window   Window
	Step     time.Duration
	Limit    int
}

// Sequential enumerates chains for q. At each anchor the steps are laid
// out back to back, each checked only against its own location's
// bookings. If any step collides or would end after closing the anchor
// is dropped whole and the search moves on by Step; a fitting chain is
// emitted and the anchor jumps to the chain's end.
//
// Like Concurrent the sequence is lazy and restartable. An empty chain or
// a step with a non-positive duration yields nothing.
func Sequential(q SequentialQuery) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if len(q.Chain) == 0 {
			return
		}
		var total time.Duration
		for _, s := range q.Chain {
			if s.Duration <= 0 {
				return
			}
			total += s.Duration
		}
		step := stepOrDefault(q.Step)
		limit := q.Limit
		if limit <= 0 {
			limit = DefaultSequentialLimit
		}
		anchor, closing := q.Window.On(q.Day)
		for found := 0; found < limit; {
			if anchor.Add(total).After(closing) {
				return
			}
			segs, ok := q.fit(anchor, closing)
			if !ok {
				anchor = anchor.Add(step)
				continue
			}
			slot := SequentialSlot(segs)
			if !yield(slot) {
				return
			}
			found++
			anchor = slot.End
		}
	}
}

// fit lays the chain out from anchor. It returns false as soon as one
// step is blocked so no partial chain ever escapes.
func (q SequentialQuery) fit(anchor, closing time.Time) ([]Segment, bool) {
	segs := make([]Segment, 0, len(q.Chain))
	sub := anchor
	for _, s := range q.Chain {
		iv := Interval{Start: sub, End: sub.Add(s.Duration)}
		if iv.End.After(closing) {
			return nil, false
		}
		if _, hit := firstOverlap(iv, q.Bookings[s.LocationID]); hit {
			return nil, false
		}
		segs = append(segs, Segment{LocationID: s.LocationID, Interval: iv})
		sub = iv.End
	}
	return segs, true
}
