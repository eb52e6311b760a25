package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/metrics"
)

// Consumer listens on QueueName and appends one line per event to a log
// file.
type Consumer struct {
	URL     string
	LogPath string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewConsumer returns a Consumer writing to logs/reservations.log.
func NewConsumer(url string, logger *zap.Logger, m *metrics.Metrics) *Consumer {
	return &Consumer{
		URL:     url,
		LogPath: filepath.Join("logs", "reservations.log"),
		Logger:  logger,
		Metrics: m,
	}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Broker failures trigger a reconnect with exponential backoff
// capped at 30s, so the server keeps running while the broker is down.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("reservation consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn("reservation consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("reservation consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.Logger.Info("reservation consumer: listening", zap.String("queue", QueueName))

	for d := range msgs {
		ev, err := c.handle(d.Body)
		if err != nil {
			c.Logger.Error("reservation consumer: handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
			c.Metrics.EventOutcome("consume", ev.Type, "error")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		c.Metrics.EventOutcome("consume", ev.Type, "ok")
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) (ReservationEvent, error) {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return ev, fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return ev, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return ev, fmt.Errorf("write log: %w", err)
	}
	return ev, nil
}

// FormatLine renders ev as one newline-terminated log line.
func FormatLine(ev ReservationEvent) string {
	verb := "Reservation created"
	if ev.Type == ReservationDeleted {
		verb = "Reservation deleted"
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | reservation_id=%d | location_id=%d | user_id=%d | interval=%s/%s\n",
		ev.OccurredAt, verb, ev.ID, ev.ReservationID, ev.LocationID, ev.UserID, ev.StartsAt, ev.EndsAt)
}
