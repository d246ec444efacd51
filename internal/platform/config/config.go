package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	SessionTTL     time.Duration
	WebhookTimeout time.Duration
	AuditBuffer    int
	SweepInterval  time.Duration
}

const (
	defaultSessionTTL     = 24 * time.Hour
	defaultWebhookTimeout = 10 * time.Second
	defaultAuditBuffer    = 1024
	defaultSweepInterval  = time.Minute
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:           getEnv("KEYGATE_ADDR", ":8080"),
		LogLevel:       getEnv("KEYGATE_LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("KEYGATE_DATABASE_URL"),
		RedisURL:       os.Getenv("KEYGATE_REDIS_URL"),
		SessionTTL:     getDuration("KEYGATE_SESSION_TTL", defaultSessionTTL),
		WebhookTimeout: getDuration("KEYGATE_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
		AuditBuffer:    getInt("KEYGATE_AUDIT_BUFFER", defaultAuditBuffer),
		SweepInterval:  getDuration("KEYGATE_SWEEP_INTERVAL", defaultSweepInterval),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
