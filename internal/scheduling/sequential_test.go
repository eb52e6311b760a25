package scheduling

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential_FreeDay(t *testing.T) {
	q := SequentialQuery{
		Day: at(0, 0),
		Chain: []ChainStep{
			{LocationID: 1, Duration: 30 * time.Minute},
			{LocationID: 2, Duration: 45 * time.Minute},
		},
		Window: DefaultWindow,
	}
	got := slices.Collect(Sequential(q))

	require.Len(t, got, DefaultSequentialLimit)
	first := got[0]
	assert.Equal(t, SlotSequential, first.Kind)
	assert.Equal(t, span(6, 0, 7, 15), first.Interval)
	assert.Equal(t, []Segment{
		{LocationID: 1, Interval: span(6, 0, 6, 30)},
		{LocationID: 2, Interval: span(6, 30, 7, 15)},
	}, first.Segments)
	assert.Equal(t, at(7, 15), got[1].Start, "anchor jumps to the end of the previous chain")
}

func TestSequential_ChainIsAtomic(t *testing.T) {
	q := SequentialQuery{
		Day: at(0, 0),
		Chain: []ChainStep{
			{LocationID: 1, Duration: 30 * time.Minute},
			{LocationID: 2, Duration: 45 * time.Minute},
		},
		Bookings: map[uint64][]Interval{2: {span(6, 30, 7, 0)}},
		Window:   DefaultWindow,
		Limit:    3,
	}
	got := slices.Collect(Sequential(q))
	require.NotEmpty(t, got)
	assert.Equal(t, at(6, 30), got[0].Start)

	for _, s := range got {
		require.Len(t, s.Segments, 2)
		for _, seg := range s.Segments {
			_, hit := firstOverlap(seg.Interval, q.Bookings[seg.LocationID])
			assert.False(t, hit)
			assert.True(t, DefaultWindow.Contains(seg.Interval))
		}
		assert.Equal(t, s.Segments[0].End, s.Segments[1].Start)
	}
}

func TestSequential_ChecksOnlyOwnLocation(t *testing.T) {
	q := SequentialQuery{
		Day:      at(0, 0),
		Chain:    []ChainStep{{LocationID: 1, Duration: time.Hour}},
		Bookings: map[uint64][]Interval{2: {span(6, 0, 19, 0)}},
		Window:   DefaultWindow,
		Limit:    2,
	}
	got := slices.Collect(Sequential(q))
	assert.Equal(t, []time.Time{at(6, 0), at(7, 0)}, starts(got))
}

func TestSequential_RespectsClose(t *testing.T) {
	q := SequentialQuery{
		Day: at(0, 0),
		Chain: []ChainStep{
			{LocationID: 1, Duration: time.Hour},
			{LocationID: 2, Duration: time.Hour},
		},
		Bookings: map[uint64][]Interval{1: {span(6, 0, 17, 0)}},
		Window:   DefaultWindow,
	}
	got := slices.Collect(Sequential(q))
	require.Len(t, got, 1)
	assert.Equal(t, span(17, 0, 19, 0), got[0].Interval)

	// The first free anchor for location 1 is now 17:15, and a chain
	// starting there would end at 19:15.
	q.Bookings = map[uint64][]Interval{1: {span(6, 0, 17, 15)}}
	assert.Empty(t, slices.Collect(Sequential(q)))
}

func TestSequential_EmptyInputs(t *testing.T) {
	assert.Empty(t, slices.Collect(Sequential(SequentialQuery{Day: at(0, 0), Window: DefaultWindow})))

	bad := SequentialQuery{
		Day:    at(0, 0),
		Chain:  []ChainStep{{LocationID: 1, Duration: time.Hour}, {LocationID: 2}},
		Window: DefaultWindow,
	}
	assert.Empty(t, slices.Collect(Sequential(bad)))

	tooLong := SequentialQuery{
		Day:    at(0, 0),
		Chain:  []ChainStep{{LocationID: 1, Duration: 10 * time.Hour}, {LocationID: 2, Duration: 4 * time.Hour}},
		Window: DefaultWindow,
	}
	assert.Empty(t, slices.Collect(Sequential(tooLong)))
}
