package config

import (
	"strings"
	"testing"
	"time"

	"staybook/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		MongoURI:                DefaultMongoURI,
		MongoDatabaseName:       DefaultMongoDatabaseName,
		MongoConnTimeout:        DefaultMongoConnTimeout,
		Port:                    DefaultPort,
		LogLevel:                DefaultLogLevel,
		LogFormat:               DefaultLogFormat,
		RateLimitRequests:       DefaultRateLimitRequests,
		RateLimitWindow:         DefaultRateLimitWindow,
		RequestTimeout:          DefaultRequestTimeout,
		IdempotencyTTL:          DefaultIdempotencyTTL,
		MaxRequestSize:          DefaultMaxRequestSize,
		ReadTimeout:             DefaultReadTimeout,
		WriteTimeout:            DefaultWriteTimeout,
		IdleTimeout:             DefaultIdleTimeout,
		ShutdownTimeout:         DefaultShutdownTimeout,
		AccommodationServiceURL: DefaultAccommodationServiceURL,
		AutoConfirmTimeout:      DefaultAutoConfirmTimeout,
		LockTTL:                 DefaultLockTTL,
		LockRetryAttempts:       DefaultLockRetryAttempts,
		LockRetryBackoff:        DefaultLockRetryBackoff,
		CompletionSweepEnabled:  DefaultCompletionSweepEnabled,
		CalendarDefaultMonths:   DefaultCalendarDefaultMonths,
		NotifyTimeout:           DefaultNotifyTimeout,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port must be between"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "postgres://localhost" }, "MongoURI must start"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat must be one of"},
		{"pretty log format", func(c *Config) { c.LogFormat = logger.PRETTY }, ""},
		{"relative accommodation url", func(c *Config) { c.AccommodationServiceURL = "/api" }, "AccommodationServiceURL"},
		{"zero lock ttl", func(c *Config) { c.LockTTL = 0 }, "LockTTL must be positive"},
		{"no attempts", func(c *Config) { c.LockRetryAttempts = 0 }, "LockRetryAttempts"},
		{"calendar months", func(c *Config) { c.CalendarDefaultMonths = 0 }, "CalendarDefaultMonths"},
		{"negative backoff", func(c *Config) { c.LockRetryBackoff = -time.Second }, "LockRetryBackoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_NumbersAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.NotifyTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered errors, got %q", err.Error())
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017/staybook")
	if strings.Contains(got, "secret") || !strings.Contains(got, "***:***@db") {
		t.Errorf("credentials not redacted: %s", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv(EnvLockRetryAttempts, "7")
	t.Setenv(EnvNotifyTimeout, "2s")
	t.Setenv(EnvCompletionSweepEnabled, "false")
	t.Setenv(EnvCalendarDefaultMonths, "not-a-number")

	if got := getEnvNum(EnvLockRetryAttempts, 1); got != 7 {
		t.Errorf("getEnvNum = %d, want 7", got)
	}
	if got := getEnvDuration(EnvNotifyTimeout, time.Second); got != 2*time.Second {
		t.Errorf("getEnvDuration = %s, want 2s", got)
	}
	if got := getEnvBool(EnvCompletionSweepEnabled, true); got {
		t.Error("getEnvBool should read false")
	}
	if got := getEnvNum(EnvCalendarDefaultMonths, 3); got != 3 {
		t.Errorf("malformed value should fall back, got %d", got)
	}
}
