package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/queue"
	"github.com/iliyamo/site-reservation/internal/scheduling"
)

func newWriter(store *memStore, pub Publisher) *ReservationService {
	return NewReservationService(store, NewLocalLocker(), config.DefaultSchedule(), pub, nil, nil)
}

func TestCreate_OutOfHoursWritesNothing(t *testing.T) {
	store := newMemStore(1)
	svc := newWriter(store, nil)

	_, err := svc.Create(context.Background(), CreateReservationInput{LocationID: 1, Interval: span(18, 30, 19, 30), Actor: 5})

	var oh *scheduling.OutOfHoursError
	require.ErrorAs(t, err, &oh)
	assert.Equal(t, span(18, 30, 19, 30), oh.Interval)
	assert.Equal(t, 0, store.calls, "store must not be reached")
	assert.Equal(t, 0, store.count())
}

func TestCreate_OverlapRejected(t *testing.T) {
	store := newMemStore(1)
	pub := &recordingPublisher{}
	svc := newWriter(store, pub)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateReservationInput{LocationID: 1, Interval: span(9, 0, 10, 0), Actor: 5})
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), first.StartsAt)

	_, err = svc.Create(ctx, CreateReservationInput{LocationID: 1, Interval: span(9, 30, 10, 30), Actor: 6})
	var ov *scheduling.OverlapError
	require.ErrorAs(t, err, &ov)
	assert.Equal(t, uint64(1), ov.LocationID)
	assert.Equal(t, span(9, 0, 10, 0), ov.Conflict)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, []string{queue.ReservationCreated}, pub.types())
}

func TestCreate_BackToBackAllowed(t *testing.T) {
	store := newMemStore(1)
	svc := newWriter(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateReservationInput{LocationID: 1, Interval: span(9, 0, 10, 0), Actor: 5})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateReservationInput{LocationID: 1, Interval: span(10, 0, 11, 0), Actor: 6})
	require.NoError(t, err)
	assert.Equal(t, 2, store.count())
}

func TestCreate_RoundsToGrid(t *testing.T) {
	store := newMemStore(1)
	svc := newWriter(store, nil)

	res, err := svc.Create(context.Background(), CreateReservationInput{LocationID: 1, Interval: span(9, 7, 10, 8), Actor: 5})
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), res.StartsAt)
	assert.Equal(t, at(10, 15), res.EndsAt)
}

func TestCreate_InvalidInput(t *testing.T) {
	svc := newWriter(newMemStore(1), nil)
	ctx := context.Background()
	cases := map[string]CreateReservationInput{
		"no location":    {Interval: span(9, 0, 10, 0), Actor: 5},
		"no actor":       {LocationID: 1, Interval: span(9, 0, 10, 0)},
		"inverted":       {LocationID: 1, Interval: span(10, 0, 9, 0), Actor: 5},
		"empty":          {LocationID: 1, Interval: span(9, 0, 9, 0), Actor: 5},
		"collapses to 0": {LocationID: 1, Interval: span(9, 1, 9, 5), Actor: 5},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in)
			var ip *scheduling.InvalidParameterError
			assert.ErrorAs(t, err, &ip)
		})
	}
}

func TestCreate_UnknownLocation(t *testing.T) {
	svc := newWriter(newMemStore(1), nil)
	_, err := svc.Create(context.Background(), CreateReservationInput{LocationID: 9, Interval: span(9, 0, 10, 0), Actor: 5})
	var nf *scheduling.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "location", nf.Resource)
}

func TestCreate_ConcurrentWritersSerialised(t *testing.T) {
	store := newMemStore(1)
	store.gap = 5 * time.Millisecond
	svc := newWriter(store, nil)

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		overlaps int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(actor uint64) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateReservationInput{LocationID: 1, Interval: span(9, 0, 10, 0), Actor: actor})
			mu.Lock()
			defer mu.Unlock()
			var ov *scheduling.OverlapError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &ov):
				overlaps++
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, overlaps)
	assert.Equal(t, 1, store.count())
}

func TestCreate_PublishFailureDoesNotUndoWrite(t *testing.T) {
	store := newMemStore(1)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newWriter(store, pub)

	res, err := svc.Create(context.Background(), CreateReservationInput{LocationID: 1, Interval: span(9, 0, 10, 0), Actor: 5})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, 1, store.count())
}

func TestDelete_OwnerChecks(t *testing.T) {
	store := newMemStore(1, 2)
	pub := &recordingPublisher{}
	svc := newWriter(store, pub)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateReservationInput{LocationID: 1, Interval: span(9, 0, 10, 0), Actor: 5})
	require.NoError(t, err)

	err = svc.Delete(ctx, 1, res.ID, 6)
	var no *scheduling.NotOwnerError
	require.ErrorAs(t, err, &no)
	assert.Equal(t, 1, store.count(), "reservation must remain")

	err = svc.Delete(ctx, 2, res.ID, 5)
	var nf *scheduling.NotFoundError
	require.ErrorAs(t, err, &nf, "wrong location is reported as missing")

	err = svc.Delete(ctx, 1, 999, 5)
	require.ErrorAs(t, err, &nf)

	require.NoError(t, svc.Delete(ctx, 1, res.ID, 5))
	assert.Equal(t, 0, store.count())
	assert.Equal(t, []string{queue.ReservationCreated, queue.ReservationDeleted}, pub.types())
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "created", outcome(nil, "created"))
	assert.Equal(t, "overlap", outcome(&scheduling.OverlapError{}, "created"))
	assert.Equal(t, "out_of_hours", outcome(&scheduling.OutOfHoursError{}, "created"))
	assert.Equal(t, "not_owner", outcome(&scheduling.NotOwnerError{}, "deleted"))
	assert.Equal(t, "lock_timeout", outcome(ErrLockTimeout, "created"))
	assert.Equal(t, "error", outcome(errors.New("boom"), "created"))
}
