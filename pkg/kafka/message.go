package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Header keys shared by the notifier, the DLQ writer and the redrive tool.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderRetryCount    = "retry-count"
	HeaderOriginalTopic = "original-topic"
	HeaderDLQError      = "dlq-error"
	HeaderDLQTimestamp  = "dlq-timestamp"
)

// Message is the transport-neutral form of a record. Key is the accommodation id for calendar
// events and the request id for request events, so per-key order follows partition order.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// MessageHandler processes one consumed message. A nil return commits the offset.
type MessageHandler func(ctx context.Context, msg Message) error

func (m *Message) GetHeader(key string) (string, bool) {
	v, ok := m.Headers[key]
	return v, ok
}

func (m *Message) GetEventID() string       { return m.Headers[HeaderEventID] }
func (m *Message) GetEventType() string     { return m.Headers[HeaderEventType] }
func (m *Message) GetCorrelationID() string { return m.Headers[HeaderCorrelationID] }

// GetRetryCount reads the retry-count header; a missing or garbled value counts as zero.
func (m *Message) GetRetryCount() int {
	n, err := strconv.Atoi(m.Headers[HeaderRetryCount])
	if err != nil {
		return 0
	}
	return n
}

func (m *Message) IncrementRetryCount() {
	if m.Headers == nil {
		m.Headers = map[string]string{}
	}
	m.Headers[HeaderRetryCount] = strconv.Itoa(m.GetRetryCount() + 1)
}

// MessageBuilder assembles an outgoing message. Value encoding errors surface from BuildE.
type MessageBuilder struct {
	msg Message
	err error
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{msg: Message{Headers: map[string]string{}, Timestamp: time.Now()}}
}

func (b *MessageBuilder) header(key, value string) *MessageBuilder {
	b.msg.Headers[key] = value
	return b
}

func (b *MessageBuilder) WithTopic(topic string) *MessageBuilder {
	b.msg.Topic = topic
	return b
}

func (b *MessageBuilder) WithKey(key string) *MessageBuilder {
	b.msg.Key = key
	return b
}

func (b *MessageBuilder) WithRawValue(value []byte) *MessageBuilder {
	b.msg.Value = value
	return b
}

func (b *MessageBuilder) WithValue(value any) *MessageBuilder {
	b.msg.Value, b.err = json.Marshal(value)
	return b
}

// WithEventID sets the event id; an empty id gets a fresh UUID.
func (b *MessageBuilder) WithEventID(id string) *MessageBuilder {
	if id == "" {
		id = uuid.NewString()
	}
	return b.header(HeaderEventID, id)
}

func (b *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	return b.header(HeaderEventType, eventType)
}

func (b *MessageBuilder) WithCorrelationID(id string) *MessageBuilder {
	return b.header(HeaderCorrelationID, id)
}

func (b *MessageBuilder) WithSchemaVersion(version string) *MessageBuilder {
	return b.header(HeaderSchemaVersion, version)
}

func (b *MessageBuilder) WithSource(source string) *MessageBuilder {
	return b.header(HeaderSource, source)
}

// Build fills in the event id and timestamp headers when they were not set.
func (b *MessageBuilder) Build() Message {
	if b.msg.Headers[HeaderEventID] == "" {
		b.WithEventID("")
	}
	if b.msg.Headers[HeaderTimestamp] == "" {
		b.header(HeaderTimestamp, b.msg.Timestamp.UTC().Format(time.RFC3339))
	}
	return b.msg
}

func (b *MessageBuilder) BuildE() (Message, error) {
	if b.err != nil {
		return Message{}, NewPermanentError("failed to encode message value", b.err)
	}
	return b.Build(), nil
}

func toKafkaMessage(msg Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Timestamp,
	}
}

func fromKafkaMessage(km kafka.Message) Message {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(km.Key),
		Value:     km.Value,
		Headers:   headers,
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Timestamp: km.Time,
	}
}
