package config

import (
	"os"
	"strconv"
	"time"
)

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvAccommodationServiceURL = "ACCOMMODATION_SERVICE_URL"
	EnvAutoConfirmTimeout      = "AUTO_CONFIRM_TIMEOUT"

	EnvLockTTL           = "LOCK_TTL"
	EnvLockRetryAttempts = "LOCK_RETRY_ATTEMPTS"
	EnvLockRetryBackoff  = "LOCK_RETRY_BACKOFF"

	EnvCompletionSweepEnabled = "COMPLETION_SWEEP_ENABLED"
	EnvCalendarDefaultMonths  = "CALENDAR_DEFAULT_MONTHS"
	EnvNotifyTimeout          = "NOTIFY_TIMEOUT"
)

// lookup parses key with parse, keeping fallback when the variable is unset or malformed.
func lookup[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	if v, err := parse(raw); err == nil {
		return v
	}
	return fallback
}

func getEnvStr(key, fallback string) string {
	return lookup(key, fallback, func(s string) (string, error) { return s, nil })
}

func getEnvNum(key string, fallback int) int { return lookup(key, fallback, strconv.Atoi) }

func getEnvBool(key string, fallback bool) bool { return lookup(key, fallback, strconv.ParseBool) }

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	return lookup(key, fallback, time.ParseDuration)
}
