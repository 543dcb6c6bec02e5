package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GAMBIT_CONFIG is set
//  3. env (prefix GAMBIT_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("GAMBIT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// GAMBIT_POLL_INTERVAL_MS -> poll_interval_ms, underscores preserved to
	// match the koanf tags on the struct.
	envProvider := env.Provider("GAMBIT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "gambit_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn required for postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	}
	// The poller has to fire well inside the shortest round, or expiry lag
	// becomes visible to players.
	minDuration := time.Duration(c.MinRoundDurationS) * time.Second
	if time.Duration(c.PollIntervalMS)*time.Millisecond*2 > minDuration {
		return fmt.Errorf("%w: poll_interval_ms too long for min_round_duration_s", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.Lambda < 0 || c.Beta < 0 || c.Gamma < 0 {
		return fmt.Errorf("%w: scoring coefficients must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// PollInterval returns the poller tick interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// MinRoundDuration returns the shortest accepted round duration.
func (c *Config) MinRoundDuration() time.Duration {
	return time.Duration(c.MinRoundDurationS) * time.Second
}
