// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	LogLevel      slog.Level
}

// Load reads configuration from environment variables and returns a validated
// Config. Every variable is optional and has a default:
// RATEGATE_LISTEN_ADDR (127.0.0.1:8080), RATEGATE_DB_PATH (rategate.db),
// RATEGATE_SESSION_TTL (15m), RATEGATE_SWEEP_INTERVAL (1m),
// RATEGATE_LOG_LEVEL (info). Malformed values are an error.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("RATEGATE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "rategate.db"
	if v, ok := os.LookupEnv("RATEGATE_DB_PATH"); ok {
		dbPath = v
	}

	sessionTTL := 15 * time.Minute
	if v, ok := os.LookupEnv("RATEGATE_SESSION_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RATEGATE_SESSION_TTL has invalid duration %q: %w", v, err)
		}
		sessionTTL = parsed
	}

	sweepInterval := time.Minute
	if v, ok := os.LookupEnv("RATEGATE_SWEEP_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RATEGATE_SWEEP_INTERVAL has invalid duration %q: %w", v, err)
		}
		sweepInterval = parsed
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("RATEGATE_LOG_LEVEL"); ok {
		parsed, err := parseLogLevel(v)
		if err != nil {
			return nil, err
		}
		logLevel = parsed
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SessionTTL:    sessionTTL,
		SweepInterval: sweepInterval,
		LogLevel:      logLevel,
	}, nil
}

// parseLogLevel maps a level name onto its slog.Level.
func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("RATEGATE_LOG_LEVEL has invalid level %q: expected debug, info, warn, or error", s)
	}
}
