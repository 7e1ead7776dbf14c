// Package notifier publishes calendar and request changes to Kafka after they are committed.
// Publishing never fails the operation that produced the events; failures are logged and the
// producer parks undeliverable messages on the dead-letter topic.
package notifier

import (
	"context"
	"fmt"
	"time"

	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
)

const schemaVersion = "1"

type Publisher interface {
	PublishBatch(ctx context.Context, msgs []kafka.Message) error
}

// Notifier is implemented by the Kafka notifier and by test doubles.
type Notifier interface {
	Notify(ctx context.Context, events ...Event)
}

// NotificationError reports an event that could not be handed to the bus.
type NotificationError struct {
	Topic string
	Key   string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to publish to %s (key %s): %v", e.Topic, e.Key, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

type kafkaNotifier struct {
	publisher Publisher
	source    string
	timeout   time.Duration
	log       *logger.Logger
}

func NewKafkaNotifier(publisher Publisher, source string, timeout time.Duration, log *logger.Logger) Notifier {
	return &kafkaNotifier{
		publisher: publisher,
		source:    source,
		timeout:   timeout,
		log:       log,
	}
}

// Notify publishes the events of one operation as a single ordered batch. The caller's
// cancellation is ignored: the state change is already committed.
func (n *kafkaNotifier) Notify(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}

	correlationID := middleware.RequestID(ctx)
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := kafka.NewMessage().
			WithTopic(e.Topic).
			WithKey(e.Key).
			WithEventID("").
			WithEventType(e.Type).
			WithSource(n.source).
			WithSchemaVersion(schemaVersion).
			WithCorrelationID(correlationID).
			WithValue(e.Payload).
			BuildE()
		if err != nil {
			n.report(&NotificationError{Topic: e.Topic, Key: e.Key, Err: err})
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.publisher.PublishBatch(pubCtx, msgs); err != nil {
		for _, msg := range msgs {
			n.report(&NotificationError{Topic: msg.Topic, Key: msg.Key, Err: err})
		}
	}
}

func (n *kafkaNotifier) report(err *NotificationError) {
	n.log.Warn("Change notification failed",
		"topic", err.Topic,
		"key", err.Key,
		"error", err.Err,
	)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(context.Context, ...Event) {}
