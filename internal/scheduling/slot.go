package scheduling

import "slices"

// SlotKind tags the two shapes a Slot can take.
type SlotKind string

const (
	// SlotSimple is one interval shared by every selected location.
	SlotSimple SlotKind = "simple"
	// SlotSequential is a chain of per-location intervals booked back to back.
	SlotSequential SlotKind = "sequential"
)

// Segment is one link of a sequential chain.
type Segment struct {
	LocationID uint64 `json:"location_id"`
	Interval
}

// Slot is a computed, never persisted, candidate interval. For SlotSimple
// LocationIDs lists the locations that are all free for Interval. For
// SlotSequential Segments holds the ordered chain and Interval spans from
// the first segment's start to the last segment's end.
type Slot struct {
	Kind SlotKind `json:"kind"`
	Interval
	LocationIDs []uint64  `json:"location_ids,omitempty"`
	Segments    []Segment `json:"segments,omitempty"`
	Booked      bool      `json:"booked"`
}

// SimpleSlot builds a concurrent-mode slot.
func SimpleSlot(iv Interval, locationIDs []uint64) Slot {
	return Slot{Kind: SlotSimple, Interval: iv, LocationIDs: slices.Clone(locationIDs)}
}

// SequentialSlot builds a chain slot. segs must be non-empty and ordered.
func SequentialSlot(segs []Segment) Slot {
	s := Slot{Kind: SlotSequential, Segments: slices.Clone(segs)}
	if len(segs) > 0 {
		s.Interval = Interval{Start: segs[0].Start, End: segs[len(segs)-1].End}
	}
	return s
}
