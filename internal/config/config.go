// Package config loads service settings from the environment and the
// optional reward policy file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Prefix is prepended to every environment variable, e.g. CLUBLEDGER_ADDR.
const Prefix = "CLUBLEDGER"

// Config holds the service settings.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	DBPath   string `envconfig:"DB_PATH" default:"clubledger.db"`
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Email delivery. Without a key progress mails go to the noop sender.
	ResendKey string `envconfig:"RESEND_KEY"`
	EmailFrom string `envconfig:"EMAIL_FROM" default:"Club Ledger <fortschritt@example.org>"`
	ReplyTo   string `envconfig:"REPLY_TO"`

	OutboxCron    string `envconfig:"OUTBOX_CRON" default:"@every 1m"`
	TxMaxAttempts int    `envconfig:"TX_MAX_ATTEMPTS" default:"5"`
	SlowQueryMs   int    `envconfig:"SLOW_QUERY_MS" default:"50"`
	SlowRequestMs int    `envconfig:"SLOW_REQUEST_MS" default:"200"`
	RateLimit     int    `envconfig:"RATE_LIMIT" default:"120"` // requests per minute per client

	PolicyFile string `envconfig:"POLICY_FILE"`
}

// Load reads the environment and validates the result.
// PRE: none
// POST: Returns a validated Config or an error naming the bad variable
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New(Prefix+"_ADDR must be set"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New(Prefix+"_DB_PATH must be set"))
	}
	switch c.Env {
	case "development", "test", "production":
	default:
		errs = append(errs, fmt.Errorf("%s_ENV %q must be development, test or production", Prefix, c.Env))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.TxMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s_TX_MAX_ATTEMPTS must be at least 1, got %d", Prefix, c.TxMaxAttempts))
	}
	if c.SlowQueryMs < 0 {
		errs = append(errs, fmt.Errorf("%s_SLOW_QUERY_MS cannot be negative", Prefix))
	}
	if c.SlowRequestMs < 0 {
		errs = append(errs, fmt.Errorf("%s_SLOW_REQUEST_MS cannot be negative", Prefix))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%s_RATE_LIMIT cannot be negative", Prefix))
	}
	if _, err := cron.ParseStandard(c.OutboxCron); err != nil {
		errs = append(errs, fmt.Errorf("%s_OUTBOX_CRON %q: %w", Prefix, c.OutboxCron, err))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%s_LOG_LEVEL %q must be debug, info, warn or error", Prefix, c.LogLevel)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
