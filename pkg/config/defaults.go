package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "staybook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAccommodationServiceURL = "http://localhost:8081"
	DefaultAutoConfirmTimeout      = 3 * time.Second

	DefaultLockTTL           = 30 * time.Second
	DefaultLockRetryAttempts = 3
	DefaultLockRetryBackoff  = 50 * time.Millisecond

	DefaultCompletionSweepEnabled = true
	DefaultCalendarDefaultMonths  = 3
	DefaultNotifyTimeout          = 5 * time.Second
)
