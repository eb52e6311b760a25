package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/site-reservation/internal/metrics"
	"github.com/iliyamo/site-reservation/internal/queue"
)

// Publisher delivers reservation events.  Failures are reported but never
// undo the write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// AMQPPublisher publishes to the durable queue.QueueName on the
// default exchange, dialing per message.
type AMQPPublisher struct {
	url     string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewAMQPPublisher(url string, logger *zap.Logger, m *metrics.Metrics) *AMQPPublisher {
	return &AMQPPublisher{url: url, logger: logger, metrics: m}
}

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		p.logger.Warn("rabbitmq: publish failed",
			zap.String("event_id", ev.ID), zap.String("type", ev.Type), zap.Error(err))
		p.metrics.EventOutcome("publish", ev.Type, "error")
		return err
	}
	p.metrics.EventOutcome("publish", ev.Type, "ok")
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.ReservationEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queue.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
