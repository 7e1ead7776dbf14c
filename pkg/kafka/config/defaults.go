package kafka_config

import "time"

const (
	DefaultKafkaBrokers           = "localhost:9092"
	DefaultDLQTopic               = "staybook-notifications-dlq"
	DefaultConsumerGroup          = "staybook-redrive"
	DefaultAllowAutoTopicCreation = true

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// The redrive drains the dead-letter topic from its oldest uncommitted message.
	DefaultConsumerStartOffset       int64 = -2
	DefaultConsumerMinBytes                = 1
	DefaultConsumerMaxBytes                = 10 * 1024 * 1024
	DefaultConsumerMaxWait                 = 500 * time.Millisecond
	DefaultConsumerCommitInterval          = time.Duration(0)
	DefaultConsumerHeartbeatInterval       = 3 * time.Second
	DefaultConsumerSessionTimeout          = 10 * time.Second
	DefaultConsumerRebalanceTimeout        = 60 * time.Second
	DefaultConsumerMaxRetries              = 3

	DefaultEnableMiddleware = true
)
