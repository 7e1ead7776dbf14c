package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "staybook/pkg/kafka/config"
	"staybook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a kafka-go writer that routes each message by its own Topic.
// Messages that cannot be delivered are copied to the dead-letter topic.
type Producer struct {
	writer     messageWriter
	dlqWriter  messageWriter
	dlqTopic   string
	log        *logger.Logger
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

type PublishFunc func(ctx context.Context, msgs []Message) error

// ProducerMiddleware allows intercepting publish operations
type ProducerMiddleware func(ctx context.Context, msgs []Message, next PublishFunc) error

func NewProducer(cfg *kafka_config.Config, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	compression := compressionCodec(cfg.ProducerCompression)
	errorLogger := kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error(fmt.Sprintf(msg, args...), "component", "kafka_writer")
	})

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // Hash by key for ordering
		RequiredAcks:           requiredAcks(cfg.ProducerRequireAcks),
		Compression:            compression,
		MaxAttempts:            cfg.ProducerMaxAttempts,
		BatchTimeout:           cfg.ProducerBatchTimeout,
		Async:                  cfg.ProducerAsync,
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		Logger:                 kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:            errorLogger,
	}

	var dlqWriter messageWriter
	if cfg.DLQTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.DLQTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll, // DLQ should be reliable
			Compression:            compression,
			MaxAttempts:            3,
			AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
			Logger:                 kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:            errorLogger,
		}
	}

	return newProducer(writer, dlqWriter, cfg.DLQTopic, log), nil
}

func newProducer(writer, dlqWriter messageWriter, dlqTopic string, log *logger.Logger) *Producer {
	return &Producer{
		writer:     writer,
		dlqWriter:  dlqWriter,
		dlqTopic:   dlqTopic,
		log:        log,
		middleware: make([]ProducerMiddleware, 0),
	}
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	case "none":
		return 0
	default:
		return compress.Snappy
	}
}

func requiredAcks(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	return p.PublishBatch(ctx, []Message{msg})
}

// PublishBatch writes the messages in one call so that messages sharing a key keep their order.
// Every message must name its topic and carry a key and a value.
func (p *Producer) PublishBatch(ctx context.Context, msgs []Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	middleware := p.middleware
	p.mu.RUnlock()

	if len(msgs) == 0 {
		return nil
	}
	for _, msg := range msgs {
		switch {
		case msg.Topic == "":
			return ErrEmptyTopic
		case msg.Key == "":
			return ErrEmptyKey
		case len(msg.Value) == 0:
			return ErrEmptyValue
		}
	}

	handler := p.publishInternal
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := handler
		handler = func(ctx context.Context, m []Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msgs)
}

func (p *Producer) publishInternal(ctx context.Context, msgs []Message) error {
	kafkaMessages := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		kafkaMessages = append(kafkaMessages, toKafkaMessage(msg))
	}

	err := p.writer.WriteMessages(ctx, kafkaMessages...)
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msgs, err); dlqErr != nil {
			p.log.Error("Failed to send messages to DLQ",
				"dlq_topic", p.dlqTopic,
				"count", len(msgs),
				"error", dlqErr,
				"original_error", err,
			)
			return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
		}
		p.log.Warn("Messages sent to DLQ",
			"dlq_topic", p.dlqTopic,
			"count", len(msgs),
			"error", err,
		)
	}
	return NewTransientError("failed to publish messages", err)
}

func (p *Producer) sendToDLQ(ctx context.Context, msgs []Message, originalErr error) error {
	now := time.Now()
	dead := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		headers := make(map[string]string, len(msg.Headers)+3)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers[HeaderOriginalTopic] = msg.Topic
		headers[HeaderDLQError] = originalErr.Error()
		headers[HeaderDLQTimestamp] = now.Format(time.RFC3339)

		kafkaMsg := toKafkaMessage(Message{
			Key:       msg.Key,
			Value:     msg.Value,
			Headers:   headers,
			Timestamp: now,
		})
		dead = append(dead, kafkaMsg)
	}

	// The DLQ writer has a fixed topic; the write must outlive an expired caller deadline.
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return p.dlqWriter.WriteMessages(dlqCtx, dead...)
}

// Close closes the producer and releases resources
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.writer != nil {
		err = p.writer.Close()
	}
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
