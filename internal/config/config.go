// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// Store backend names accepted in the store field.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the backend: memory or postgres.
	Store string `koanf:"store"`

	// PostgresDSN is the connection string when Store is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// PollIntervalMS is the round-expiry poller tick interval. It must be
	// materially shorter than MinRoundDurationS.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// MinRoundDurationS is the shortest round duration accepted at round
	// creation.
	MinRoundDurationS int `koanf:"min_round_duration_s"`

	// NotifyBuffer bounds each notification subscriber's channel.
	NotifyBuffer int `koanf:"notify_buffer"`

	// Workers is the completion worker pool size.
	Workers int `koanf:"workers"`

	// QueueSize bounds the completion job queue.
	QueueSize int `koanf:"queue_size"`

	// Default scoring parameters for rounds created without explicit ones.
	Lambda    float64 `koanf:"lambda"`
	Beta      float64 `koanf:"beta"`
	Gamma     float64 `koanf:"gamma"`
	PassScore float64 `koanf:"pass_score"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		Store:             StoreMemory,
		PollIntervalMS:    5_000,
		MinRoundDurationS: 30,
		NotifyBuffer:      64,
		Workers:           4,
		QueueSize:         1024,
		Lambda:            0.6,
		Beta:              0.2,
		Gamma:             0.4,
		PassScore:         0,
	}
}

// DefaultParams returns the configured default scoring parameters.
func (c *Config) DefaultParams() model.ScoringParams {
	return model.ScoringParams{
		Lambda:    c.Lambda,
		Beta:      c.Beta,
		Gamma:     c.Gamma,
		PassScore: c.PassScore,
	}
}
