package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"staybook/pkg/client"
	"staybook/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port      string
	LogLevel  string
	LogFormat string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	AccommodationServiceURL string
	AutoConfirmTimeout      time.Duration

	LockTTL           time.Duration
	LockRetryAttempts int
	LockRetryBackoff  time.Duration

	CompletionSweepEnabled bool
	CalendarDefaultMonths  int
	NotifyTimeout          time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		AccommodationServiceURL: getEnvStr(EnvAccommodationServiceURL, DefaultAccommodationServiceURL),
		AutoConfirmTimeout:      getEnvDuration(EnvAutoConfirmTimeout, DefaultAutoConfirmTimeout),

		LockTTL:           getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockRetryAttempts: getEnvNum(EnvLockRetryAttempts, DefaultLockRetryAttempts),
		LockRetryBackoff:  getEnvDuration(EnvLockRetryBackoff, DefaultLockRetryBackoff),

		CompletionSweepEnabled: getEnvBool(EnvCompletionSweepEnabled, DefaultCompletionSweepEnabled),
		CalendarDefaultMonths:  getEnvNum(EnvCalendarDefaultMonths, DefaultCalendarDefaultMonths),
		NotifyTimeout:          getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetAccommodations() {
	cfg.Client.SetAccommodations(cfg.Log, cfg.AccommodationServiceURL, cfg.AutoConfirmTimeout)
}

var mongoSchemeRe = regexp.MustCompile(`^mongodb(\+srv)?://`)

// Validate reports every problem at once, numbered and sorted.
func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	port, err := strconv.Atoi(cfg.Port)
	check(err == nil && port >= 1 && port <= 65535, "Port must be between 1 and 65535, got: %s", cfg.Port)

	check(cfg.MongoURI != "", "MongoURI cannot be empty")
	if cfg.MongoURI != "" {
		check(mongoSchemeRe.MatchString(cfg.MongoURI),
			"MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI))
	}
	check(cfg.MongoDatabaseName != "", "MongoDatabaseName cannot be empty")

	check(slices.Contains([]string{logger.JSON, logger.TEXT, logger.PRETTY}, cfg.LogFormat),
		"LogFormat must be one of [json, text, pretty], got: %s", cfg.LogFormat)
	check(slices.Contains([]string{logger.DEBUG, logger.INFO, logger.WARN, logger.ERROR}, cfg.LogLevel),
		"LogLevel must be one of [debug, info, warn, error], got: %s", cfg.LogLevel)

	u, err := url.Parse(cfg.AccommodationServiceURL)
	check(err == nil && u.Scheme != "" && u.Host != "",
		"AccommodationServiceURL must be an absolute URL, got: %s", cfg.AccommodationServiceURL)

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":   cfg.MongoConnTimeout,
		"RateLimitWindow":    cfg.RateLimitWindow,
		"RequestTimeout":     cfg.RequestTimeout,
		"IdempotencyTTL":     cfg.IdempotencyTTL,
		"ReadTimeout":        cfg.ReadTimeout,
		"WriteTimeout":       cfg.WriteTimeout,
		"IdleTimeout":        cfg.IdleTimeout,
		"ShutdownTimeout":    cfg.ShutdownTimeout,
		"AutoConfirmTimeout": cfg.AutoConfirmTimeout,
		"LockTTL":            cfg.LockTTL,
		"NotifyTimeout":      cfg.NotifyTimeout,
	} {
		check(d > 0, "%s must be positive, got: %s", name, d)
	}
	check(cfg.LockRetryBackoff >= 0, "LockRetryBackoff cannot be negative, got: %s", cfg.LockRetryBackoff)

	check(cfg.RateLimitRequests > 0, "RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests)
	check(cfg.MaxRequestSize > 0, "MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize)
	check(cfg.LockRetryAttempts >= 1, "LockRetryAttempts must be at least 1, got: %d", cfg.LockRetryAttempts)
	check(cfg.CalendarDefaultMonths >= 1 && cfg.CalendarDefaultMonths <= 24,
		"CalendarDefaultMonths must be between 1 and 24, got: %d", cfg.CalendarDefaultMonths)

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	var b strings.Builder
	b.WriteString("Configuration validation failed:\n")
	for i, p := range problems {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
	}
	return errors.New(b.String())
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"accommodation_service_url", cfg.AccommodationServiceURL,
		"auto_confirm_timeout", cfg.AutoConfirmTimeout,
		"lock_ttl", cfg.LockTTL,
		"lock_retry_attempts", cfg.LockRetryAttempts,
		"lock_retry_backoff", cfg.LockRetryBackoff,
		"completion_sweep_enabled", cfg.CompletionSweepEnabled,
		"calendar_default_months", cfg.CalendarDefaultMonths,
		"notify_timeout", cfg.NotifyTimeout,
	)
}

var credentialRe = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)

func redactMongoURI(uri string) string {
	return credentialRe.ReplaceAllString(uri, "${1}***:***@")
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
