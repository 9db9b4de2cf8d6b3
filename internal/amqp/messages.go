package amqp

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/events"
)

// publishing wraps an event into a persistent JSON message. The event type
// travels as the AMQP message type so consumers can route without decoding.
func publishing(e events.Event) (amqp091.Publishing, error) {
	body, err := e.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    ts,
		Body:         body,
	}, nil
}
