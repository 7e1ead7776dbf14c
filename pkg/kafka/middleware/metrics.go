package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"staybook/pkg/kafka"
)

// Metrics counts Kafka operations of one process.
type Metrics struct {
	messagesPublished       atomic.Int64
	messagesPublishedFailed atomic.Int64
	publishDurationTotal    atomic.Int64

	messagesConsumed       atomic.Int64
	messagesConsumedFailed atomic.Int64
}

type MetricsSnapshot struct {
	Published          int64
	PublishFailed      int64
	AvgPublishDuration time.Duration
	Consumed           int64
	ConsumeFailed      int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published := m.messagesPublished.Load()
	failed := m.messagesPublishedFailed.Load()
	var avg time.Duration
	if total := published + failed; total > 0 {
		avg = time.Duration(m.publishDurationTotal.Load() / total)
	}
	return MetricsSnapshot{
		Published:          published,
		PublishFailed:      failed,
		AvgPublishDuration: avg,
		Consumed:           m.messagesConsumed.Load(),
		ConsumeFailed:      m.messagesConsumedFailed.Load(),
	}
}

// LogArgs renders the snapshot as logger key/value pairs.
func (s MetricsSnapshot) LogArgs() []any {
	return []any{
		"published", s.Published,
		"publish_failed", s.PublishFailed,
		"avg_publish_duration", s.AvgPublishDuration,
		"consumed", s.Consumed,
		"consume_failed", s.ConsumeFailed,
	}
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msgs []kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()
		err := next(ctx, msgs)

		n := int64(len(msgs))
		m.publishDurationTotal.Add(int64(time.Since(start)) * n)
		if err != nil {
			m.messagesPublishedFailed.Add(n)
		} else {
			m.messagesPublished.Add(n)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		err := next(ctx, msg)
		if err != nil {
			m.messagesConsumedFailed.Add(1)
		} else {
			m.messagesConsumed.Add(1)
		}
		return err
	}
}
