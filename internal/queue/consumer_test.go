package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewReservationEvent(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	ev := NewReservationEvent(ReservationCreated, 7, 3, 11, start, start.Add(time.Hour))

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationCreated, ev.Type)
	assert.Equal(t, "2025-03-14T09:00:00Z", ev.StartsAt)
	assert.Equal(t, "2025-03-14T10:00:00Z", ev.EndsAt)
	assert.NotEmpty(t, ev.OccurredAt)
}

func TestFormatLine(t *testing.T) {
	ev := ReservationEvent{
		ID: "e1", Type: ReservationDeleted, ReservationID: 7, LocationID: 3, UserID: 11,
		StartsAt: "2025-03-14T09:00:00Z", EndsAt: "2025-03-14T10:00:00Z", OccurredAt: "2025-03-14T08:00:00Z",
	}
	assert.Equal(t,
		"[2025-03-14T08:00:00Z] Reservation deleted | event_id=e1 | reservation_id=7 | location_id=3 | user_id=11 | interval=2025-03-14T09:00:00Z/2025-03-14T10:00:00Z\n",
		FormatLine(ev))
}

func TestHandleAppendsLines(t *testing.T) {
	c := NewConsumer("amqp://unused", zap.NewNop(), nil)
	c.LogPath = filepath.Join(t.TempDir(), "nested", "reservations.log")

	_, err := c.handle([]byte(`{"id":"a","type":"reservation.created","reservation_id":1}`))
	require.NoError(t, err)
	_, err = c.handle([]byte(`{"id":"b","type":"reservation.deleted","reservation_id":1}`))
	require.NoError(t, err)

	b, err := os.ReadFile(c.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Reservation created | event_id=a")
	assert.Contains(t, lines[1], "Reservation deleted | event_id=b")
}

func TestHandleRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", zap.NewNop(), nil)
	c.LogPath = filepath.Join(t.TempDir(), "reservations.log")
	_, err := c.handle([]byte("{not json"))
	assert.Error(t, err)
	_, statErr := os.Stat(c.LogPath)
	assert.True(t, os.IsNotExist(statErr))
}
