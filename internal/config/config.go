// Package config loads and validates simulation configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port  int
	Serve bool // keep serving the HTTP API after the scripted run

	// Simulation settings.
	Seed             uint64 // 0 means random
	Clients          int
	Agents           int
	Chats            int
	Steps            int
	CloseProbability float64
	CsatProbability  float64

	// Export settings.
	ExportPath     string // JSON snapshot file; empty disables
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string // empty disables SQL export

	// Event publishing.
	AMQPURL      string
	AMQPExchange string
	WebhookURL   string

	// Agent replies.
	OpenAIAPIKey  string
	OpenAIModel   string
	CannedReplies bool

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		DatabaseDriver: envStr("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		ExportPath:     envStr("SUPCHAT_EXPORT_PATH", "snapshot.json"),
		AMQPURL:        envStr("AMQP_URL", ""),
		AMQPExchange:   envStr("AMQP_EXCHANGE", "supchat"),
		WebhookURL:     envStr("WEBHOOK_URL", ""),
		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIModel:    envStr("OPENAI_MODEL", ""),
		LogLevel:       envStr("SUPCHAT_LOG_LEVEL", "info"),
	}

	var err error
	cfg.Port, err = envInt("PORT", 8080)
	collect(err)
	cfg.Serve, err = envBool("SUPCHAT_SERVE", false)
	collect(err)
	cfg.Seed, err = envUint64("SUPCHAT_SEED", 0)
	collect(err)
	cfg.Clients, err = envInt("SUPCHAT_CLIENTS", 20)
	collect(err)
	cfg.Agents, err = envInt("SUPCHAT_AGENTS", 10)
	collect(err)
	cfg.Chats, err = envInt("SUPCHAT_CHATS", 5)
	collect(err)
	cfg.Steps, err = envInt("SUPCHAT_STEPS", 3)
	collect(err)
	cfg.CloseProbability, err = envFloat("SUPCHAT_CLOSE_PROBABILITY", 0.3)
	collect(err)
	cfg.CsatProbability, err = envFloat("SUPCHAT_CSAT_PROBABILITY", 0.7)
	collect(err)
	cfg.CannedReplies, err = envBool("SUPCHAT_CANNED_REPLIES", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c Config) Validate() error {
	if c.Clients < 0 || c.Agents < 0 {
		return fmt.Errorf("config: SUPCHAT_CLIENTS and SUPCHAT_AGENTS must not be negative")
	}
	if c.Chats < 0 || c.Chats > c.Clients {
		return fmt.Errorf("config: SUPCHAT_CHATS must be between 0 and SUPCHAT_CLIENTS")
	}
	if c.Steps < 0 {
		return fmt.Errorf("config: SUPCHAT_STEPS must not be negative")
	}
	if !isProbability(c.CloseProbability) || !isProbability(c.CsatProbability) {
		return fmt.Errorf("config: probabilities must be within [0, 1]")
	}
	if c.DatabaseURL != "" && c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("config: DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog levels, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isProbability(p float64) bool { return p >= 0 && p <= 1 }

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envUint64(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid unsigned integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
