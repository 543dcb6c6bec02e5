package service

import (
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	"github.com/koderAP/trust-gambit-sub000/internal/config"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies the loaded process configuration in one step.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.storeBackend = cfg.Store
		s.postgresDSN = cfg.PostgresDSN
		s.pollInterval = cfg.PollInterval()
		s.minRoundDuration = cfg.MinRoundDuration()
		s.notifyBuffer = cfg.NotifyBuffer
		s.workers = cfg.Workers
		s.queueSize = cfg.QueueSize
		s.defaultParams = cfg.DefaultParams()
	}
}

// WithStore injects a pre-built store; tests use this to share a MemStore
// with assertions.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPollInterval sets the expiry poller tick interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMinRoundDuration sets the shortest accepted round duration.
func WithMinRoundDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.minRoundDuration = d
		}
	}
}

// WithDefaultParams sets the scoring parameters used when a round is
// created without explicit ones.
func WithDefaultParams(p model.ScoringParams) Option {
	return func(s *Service) {
		s.defaultParams = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
