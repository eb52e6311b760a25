// Package service holds the reservation writer and the availability
// queries that sit between the HTTP handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/metrics"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/queue"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

// ReservationStore is the persistence the writer needs.  CreateIfFree
// must perform the overlap check and the insert atomically.
type ReservationStore interface {
	CreateIfFree(ctx context.Context, locationID uint64, iv scheduling.Interval, userID uint64) (*model.Reservation, error)
	DeleteOwned(ctx context.Context, locationID, reservationID, userID uint64) (*model.Reservation, error)
}

// CreateReservationInput is one booking request on behalf of Actor.
type CreateReservationInput struct {
	LocationID uint64
	Interval   scheduling.Interval
	Actor      uint64
}

// ReservationService validates and writes reservations.
type ReservationService struct {
	store     ReservationStore
	locker    Locker
	schedule  config.ScheduleConfig
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewReservationService wires the writer.  publisher and m may be nil.
func NewReservationService(store ReservationStore, locker Locker, schedule config.ScheduleConfig,
	publisher Publisher, logger *zap.Logger, m *metrics.Metrics) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		store:     store,
		locker:    locker,
		schedule:  schedule,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Create books in.Interval on in.LocationID.  The interval is snapped to
// the configured granularity, then checked against the operating window
// before any lock is taken; the overlap check runs under the per-location
// lock inside the store's transaction.  Failed checks never write.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	res, err := s.create(ctx, in)
	s.metrics.ReservationOutcome("create", outcome(err, "created"))
	if err != nil {
		if !scheduling.IsValidation(err) {
			s.logger.Error("create reservation failed",
				zap.Uint64("location_id", in.LocationID), zap.Uint64("user_id", in.Actor), zap.Error(err))
		}
		return nil, err
	}
	s.logger.Info("reservation created",
		zap.Uint64("reservation_id", res.ID),
		zap.Uint64("location_id", res.LocationID),
		zap.Uint64("user_id", res.BookedBy),
		zap.Time("start", res.StartsAt),
		zap.Time("end", res.EndsAt))
	s.publish(ctx, queue.ReservationCreated, res)
	return res, nil
}

func (s *ReservationService) create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if in.LocationID == 0 {
		return nil, &scheduling.InvalidParameterError{Field: "location_id", Reason: "required"}
	}
	if in.Actor == 0 {
		return nil, &scheduling.InvalidParameterError{Field: "user", Reason: "required"}
	}
	if !in.Interval.Valid() {
		return nil, &scheduling.InvalidParameterError{Field: "interval", Reason: "start must be before end"}
	}
	iv := scheduling.RoundInterval(in.Interval, s.schedule.Granularity())
	if !iv.Valid() {
		return nil, &scheduling.InvalidParameterError{Field: "interval", Reason: "shorter than one time slot"}
	}
	if !s.schedule.OperatingWindow.Contains(iv) {
		return nil, &scheduling.OutOfHoursError{Interval: iv, Window: s.schedule.OperatingWindow}
	}

	unlock, err := s.locker.Lock(ctx, lockKey(in.LocationID))
	if err != nil {
		return nil, fmt.Errorf("lock location %d: %w", in.LocationID, err)
	}
	defer unlock()

	return s.store.CreateIfFree(ctx, in.LocationID, iv, in.Actor)
}

// Delete removes a reservation booked by actor.  Someone else's
// reservation yields *scheduling.NotOwnerError and stays in place.
func (s *ReservationService) Delete(ctx context.Context, locationID, reservationID, actor uint64) error {
	res, err := s.delete(ctx, locationID, reservationID, actor)
	s.metrics.ReservationOutcome("delete", outcome(err, "deleted"))
	if err != nil {
		if !scheduling.IsValidation(err) {
			s.logger.Error("delete reservation failed",
				zap.Uint64("reservation_id", reservationID), zap.Uint64("user_id", actor), zap.Error(err))
		}
		return err
	}
	s.logger.Info("reservation deleted",
		zap.Uint64("reservation_id", res.ID), zap.Uint64("location_id", res.LocationID), zap.Uint64("user_id", actor))
	s.publish(ctx, queue.ReservationDeleted, res)
	return nil
}

func (s *ReservationService) delete(ctx context.Context, locationID, reservationID, actor uint64) (*model.Reservation, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(locationID))
	if err != nil {
		return nil, fmt.Errorf("lock location %d: %w", locationID, err)
	}
	defer unlock()
	return s.store.DeleteOwned(ctx, locationID, reservationID, actor)
}

func (s *ReservationService) publish(ctx context.Context, typ string, res *model.Reservation) {
	if s.publisher == nil {
		return
	}
	ev := queue.NewReservationEvent(typ, res.ID, res.LocationID, res.BookedBy, res.StartsAt, res.EndsAt)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	// Errors are logged and counted by the publisher.
	_ = s.publisher.Publish(pctx, ev)
}

func lockKey(locationID uint64) string {
	return "location:" + strconv.FormatUint(locationID, 10)
}

// outcome maps an error to a metrics label.
func outcome(err error, success string) string {
	var (
		ip *scheduling.InvalidParameterError
		oh *scheduling.OutOfHoursError
		ov *scheduling.OverlapError
		no *scheduling.NotOwnerError
		nf *scheduling.NotFoundError
	)
	switch {
	case err == nil:
		return success
	case errors.As(err, &ip):
		return "invalid"
	case errors.As(err, &oh):
		return "out_of_hours"
	case errors.As(err, &ov):
		return "overlap"
	case errors.As(err, &no):
		return "not_owner"
	case errors.As(err, &nf):
		return "not_found"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	}
	return "error"
}
