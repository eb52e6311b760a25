// Package queue defines the reservation events exchanged over RabbitMQ and
// the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// QueueName is the durable queue carrying every reservation event.
const QueueName = "reservation.events"

// Event types.
const (
	ReservationCreated = "reservation.created"
	ReservationDeleted = "reservation.deleted"
)

// ReservationEvent is published after a reservation is written or removed.
// It carries enough for consumers to log or notify without querying the
// database.
type ReservationEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	LocationID    uint64 `json:"location_id"`
	UserID        uint64 `json:"user_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent stamps a fresh ID and the current time.
func NewReservationEvent(typ string, reservationID, locationID, userID uint64, start, end time.Time) ReservationEvent {
	return ReservationEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		ReservationID: reservationID,
		LocationID:    locationID,
		UserID:        userID,
		StartsAt:      start.UTC().Format(time.RFC3339),
		EndsAt:        end.UTC().Format(time.RFC3339),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
