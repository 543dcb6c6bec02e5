package scheduler

import (
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/queue"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithQueue routes expired rounds through a completion queue consumed by
// the worker pool.
func WithQueue(q queue.Queue) Option {
	return func(p *Poller) {
		if q != nil {
			p.queue = q
		}
	}
}

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}
