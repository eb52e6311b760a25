package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/queue"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func span(h1, m1, h2, m2 int) scheduling.Interval {
	return scheduling.Interval{Start: at(h1, m1), End: at(h2, m2)}
}

// memStore checks and inserts in two separate critical sections, with an
// optional pause between them, so only an outer lock keeps writers apart.
type memStore struct {
	mu        sync.Mutex
	rows      map[uint64]model.Reservation
	next      uint64
	locations map[uint64]bool
	gap       time.Duration
	calls     int
}

func newMemStore(locationIDs ...uint64) *memStore {
	s := &memStore{rows: map[uint64]model.Reservation{}, locations: map[uint64]bool{}}
	for _, id := range locationIDs {
		s.locations[id] = true
	}
	return s
}

func (s *memStore) CreateIfFree(_ context.Context, locationID uint64, iv scheduling.Interval, userID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	s.calls++
	if !s.locations[locationID] {
		s.mu.Unlock()
		return nil, &scheduling.NotFoundError{Resource: "location", ID: locationID}
	}
	for _, r := range s.rows {
		existing := scheduling.Interval{Start: r.StartsAt, End: r.EndsAt}
		if r.LocationID == locationID && scheduling.Overlaps(existing, iv) {
			s.mu.Unlock()
			return nil, &scheduling.OverlapError{LocationID: locationID, Conflict: existing}
		}
	}
	s.mu.Unlock()

	time.Sleep(s.gap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	r := model.Reservation{ID: s.next, LocationID: locationID, BookedBy: userID, StartsAt: iv.Start, EndsAt: iv.End}
	s.rows[r.ID] = r
	return &r, nil
}

func (s *memStore) DeleteOwned(_ context.Context, locationID, reservationID, userID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[reservationID]
	if !ok || r.LocationID != locationID {
		return nil, &scheduling.NotFoundError{Resource: "reservation", ID: reservationID}
	}
	if r.BookedBy != userID {
		return nil, &scheduling.NotOwnerError{ReservationID: reservationID}
	}
	delete(s.rows, reservationID)
	return &r, nil
}

func (s *memStore) BookingsForLocations(_ context.Context, ids []uint64, _ time.Time) (map[uint64][]scheduling.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[uint64][]scheduling.Interval{}
	for _, r := range s.rows {
		if want[r.LocationID] {
			out[r.LocationID] = append(out[r.LocationID], scheduling.Interval{Start: r.StartsAt, End: r.EndsAt})
		}
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
