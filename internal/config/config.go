// Package config loads runtime settings from RELIEF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the server.
type Config struct {
	Env       string `envconfig:"ENV" default:"development"`
	Addr      string `envconfig:"ADDR" default:":8080"`
	DBPath    string `envconfig:"DB" default:"relief.sqlite3"`
	AdminUser string `envconfig:"ADMIN_USER" default:"Admin"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogFile   string `envconfig:"LOG_FILE"`

	// RedisAddr enables Idempotency-Key handling when set.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// RateLimit is the number of API calls allowed per client IP per minute.
	RateLimit int `envconfig:"RATE_LIMIT" default:"120"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("relief", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("RELIEF_DB must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("RELIEF_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.RateLimit < 0 {
		return errors.New("RELIEF_RATE_LIMIT must not be negative")
	}
	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}
