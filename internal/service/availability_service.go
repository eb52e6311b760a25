package service

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/metrics"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

// BookingSource loads booked intervals per location for one day.
type BookingSource interface {
	BookingsForLocations(ctx context.Context, ids []uint64, day time.Time) (map[uint64][]scheduling.Interval, error)
}

// ConcurrentRequest asks for slots where every listed location is free.
type ConcurrentRequest struct {
	LocationIDs     []uint64
	Day             time.Time
	DurationMinutes int
}

// SequentialRequest asks for back-to-back bookings through Chain.
type SequentialRequest struct {
	Chain []scheduling.ChainStep
	Day   time.Time
}

// AvailabilityService feeds stored bookings into the slot generators.
type AvailabilityService struct {
	source   BookingSource
	schedule config.ScheduleConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewAvailabilityService(source BookingSource, schedule config.ScheduleConfig, logger *zap.Logger, m *metrics.Metrics) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{source: source, schedule: schedule, logger: logger, metrics: m}
}

// Schedule returns the rules the service runs with.
func (s *AvailabilityService) Schedule() config.ScheduleConfig { return s.schedule }

// windowMinutes is the longest duration that can fit inside one operating day.
func (s *AvailabilityService) windowMinutes() int {
	w := s.schedule.OperatingWindow
	return w.Close.Minutes() - w.Open.Minutes()
}

// Concurrent returns up to ConcurrentLimit slots of the requested length.
// Malformed input (no locations, a duration that is non-positive or longer
// than the operating window) gives an empty result rather than an error;
// only a failing BookingSource is an error.
func (s *AvailabilityService) Concurrent(ctx context.Context, req ConcurrentRequest) ([]scheduling.Slot, error) {
	started := time.Now()
	ids := uniqueIDs(req.LocationIDs)
	if len(ids) == 0 || req.DurationMinutes <= 0 || req.DurationMinutes > s.windowMinutes() {
		s.metrics.ObserveAvailability("concurrent", time.Since(started), 0)
		return []scheduling.Slot{}, nil
	}
	minutes := scheduling.NormalizeDuration(req.DurationMinutes, s.schedule.GranularityMinutes)

	bookings, err := s.bookings(ctx, ids, req.Day)
	if err != nil {
		return nil, err
	}
	slots := slices.Collect(scheduling.Concurrent(scheduling.ConcurrentQuery{
		Day:         req.Day,
		Duration:    time.Duration(minutes) * time.Minute,
		LocationIDs: ids,
		Bookings:    bookings,
		Window:      s.schedule.OperatingWindow,
		Step:        s.schedule.Granularity(),
		Limit:       s.schedule.ConcurrentLimit,
	}))
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	s.metrics.ObserveAvailability("concurrent", time.Since(started), len(slots))
	s.logger.Debug("concurrent availability",
		zap.Uint64s("locations", ids), zap.Int("duration_min", minutes), zap.Int("slots", len(slots)))
	return slots, nil
}

// Sequential returns up to SequentialLimit chains.  Step durations are
// snapped to the granularity; an empty chain or a step without a location,
// without a duration or longer than the operating window gives an empty
// result.
func (s *AvailabilityService) Sequential(ctx context.Context, req SequentialRequest) ([]scheduling.Slot, error) {
	started := time.Now()
	if len(req.Chain) == 0 {
		s.metrics.ObserveAvailability("sequential", time.Since(started), 0)
		return []scheduling.Slot{}, nil
	}
	chain := make([]scheduling.ChainStep, len(req.Chain))
	ids := make([]uint64, 0, len(req.Chain))
	longest := time.Duration(s.windowMinutes()) * time.Minute
	for i, step := range req.Chain {
		if step.LocationID == 0 || step.Duration <= 0 || step.Duration > longest {
			s.metrics.ObserveAvailability("sequential", time.Since(started), 0)
			return []scheduling.Slot{}, nil
		}
		minutes := scheduling.NormalizeDuration(int(step.Duration/time.Minute), s.schedule.GranularityMinutes)
		chain[i] = scheduling.ChainStep{LocationID: step.LocationID, Duration: time.Duration(minutes) * time.Minute}
		ids = append(ids, step.LocationID)
	}

	bookings, err := s.bookings(ctx, uniqueIDs(ids), req.Day)
	if err != nil {
		return nil, err
	}
	slots := slices.Collect(scheduling.Sequential(scheduling.SequentialQuery{
		Day:      req.Day,
		Chain:    chain,
		Bookings: bookings,
		Window:   s.schedule.OperatingWindow,
		Step:     s.schedule.Granularity(),
		Limit:    s.schedule.SequentialLimit,
	}))
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	s.metrics.ObserveAvailability("sequential", time.Since(started), len(slots))
	return slots, nil
}

// bookings loads and snaps stored intervals to the slot grid so that a
// booking made at an odd minute blocks whole slots.
func (s *AvailabilityService) bookings(ctx context.Context, ids []uint64, day time.Time) (map[uint64][]scheduling.Interval, error) {
	raw, err := s.source.BookingsForLocations(ctx, ids, day)
	if err != nil {
		s.logger.Error("load bookings failed", zap.Uint64s("locations", ids), zap.Error(err))
		return nil, err
	}
	step := s.schedule.Granularity()
	out := make(map[uint64][]scheduling.Interval, len(raw))
	for id, list := range raw {
		for _, iv := range list {
			iv = scheduling.RoundInterval(iv, step)
			if iv.Valid() {
				out[id] = append(out[id], iv)
			}
		}
	}
	return out, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
