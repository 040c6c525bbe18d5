// Package config defines service configuration and its layered loading.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Validate before use; every failure wraps ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json. Lambda deployments use json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the ranked store backend: memory or redis.
	Store          string `koanf:"store"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// AllTimeCapacity bounds the all-time leaderboard.
	AllTimeCapacity int `koanf:"alltime_capacity"`
	// DailyTTLHours is how long daily rows are kept.
	DailyTTLHours int `koanf:"daily_ttl_hours"`
	// PurgeIntervalSeconds is the period of the expired row purge.
	PurgeIntervalSeconds int `koanf:"purge_interval_seconds"`

	// AllowedOrigin is echoed in Access-Control-Allow-Origin.
	AllowedOrigin string `koanf:"allowed_origin"`

	// Page size defaults and caps for GET /leaderboard/*.
	DailyDefaultLimit   int `koanf:"daily_default_limit"`
	DailyMaxLimit       int `koanf:"daily_max_limit"`
	AllTimeDefaultLimit int `koanf:"alltime_default_limit"`
	AllTimeMaxLimit     int `koanf:"alltime_max_limit"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		Store:                StoreMemory,
		RedisAddr:            "localhost:6379",
		RedisKeyPrefix:       "boxy:",
		AllTimeCapacity:      100,
		DailyTTLHours:        168,
		PurgeIntervalSeconds: 60,
		AllowedOrigin:        "*",
		DailyDefaultLimit:    10,
		DailyMaxLimit:        100,
		AllTimeDefaultLimit:  5,
		AllTimeMaxLimit:      20,
	}
}

// DailyTTL returns DailyTTLHours as a duration.
func (c *Config) DailyTTL() time.Duration {
	return time.Duration(c.DailyTTLHours) * time.Hour
}

// PurgeInterval returns PurgeIntervalSeconds as a duration.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.PurgeIntervalSeconds) * time.Second
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr must be set for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"alltime_capacity", c.AllTimeCapacity},
		{"daily_ttl_hours", c.DailyTTLHours},
		{"purge_interval_seconds", c.PurgeIntervalSeconds},
		{"daily_default_limit", c.DailyDefaultLimit},
		{"daily_max_limit", c.DailyMaxLimit},
		{"alltime_default_limit", c.AllTimeDefaultLimit},
		{"alltime_max_limit", c.AllTimeMaxLimit},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}
	if c.DailyDefaultLimit > c.DailyMaxLimit {
		return fmt.Errorf("%w: daily_default_limit exceeds daily_max_limit", ErrInvalidConfig)
	}
	if c.AllTimeDefaultLimit > c.AllTimeMaxLimit {
		return fmt.Errorf("%w: alltime_default_limit exceeds alltime_max_limit", ErrInvalidConfig)
	}
	return nil
}
