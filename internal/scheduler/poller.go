// Package scheduler owns the background poller that expires active rounds
// and repairs unscored ones.
package scheduler

import (
	"context"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/queue"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/engine"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
	"github.com/koderAP/trust-gambit-sub000/pkg/metrics"
)

// defaultInterval must stay materially shorter than the shortest allowed
// round duration so expiry lag is bounded by one tick.
const defaultInterval = 5 * time.Second

const stopTimeout = 5 * time.Second

// Poller periodically completes expired rounds and retries scoring for
// completed rounds whose scores are missing. It is owned by the service
// lifecycle: Start launches it, Stop (or context cancellation) ends it.
type Poller struct {
	store  repository.Store
	engine *engine.Engine

	// queue, when set, receives expired rounds for the worker pool instead
	// of completing them on the poller goroutine. A full queue falls back
	// to synchronous completion so expiry is never skipped.
	queue queue.Queue

	interval time.Duration
	now      func() time.Time
	logger   logger.Logger

	shutdown chan struct{}
	done     chan struct{}
}

// New creates a Poller with configuration options.
func New(store repository.Store, eng *engine.Engine, opts ...Option) *Poller {
	p := &Poller{
		store:    store,
		engine:   eng,
		interval: defaultInterval,
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("poller")
	}
	return p
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop signals the loop and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	select {
	case <-p.shutdown:
	default:
		close(p.shutdown)
	}
	select {
	case <-p.done:
	case <-time.After(stopTimeout):
		p.logger.Warn(context.Background(), "poller stop timed out")
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick processes each due round independently; one round's failure is
// logged and never blocks the others.
func (p *Poller) tick(ctx context.Context) {
	metrics.RecordPollerTick()
	now := p.now()

	expired, err := p.store.ListExpired(ctx, now)
	if err != nil {
		p.logger.Error(ctx, "listing expired rounds failed", logger.Error(err))
		return
	}
	for _, r := range expired {
		if p.queue != nil && p.queue.Enqueue(ctx, queue.Job{RoundID: r.ID, Reason: model.ReasonTimeExpired}) {
			continue
		}
		if _, err := p.engine.Complete(ctx, r.ID, model.ReasonTimeExpired); err != nil {
			p.logger.Error(ctx, "expiring round failed",
				logger.String("roundID", r.ID), logger.Error(err))
		}
	}

	unscored, err := p.store.ListUnscored(ctx)
	if err != nil {
		p.logger.Error(ctx, "listing unscored rounds failed", logger.Error(err))
		return
	}
	for _, r := range unscored {
		// The round records why it completed; the retry must not rewrite
		// an admin-ended round as a timer expiry.
		reason := r.EndReason
		if reason == "" {
			reason = model.ReasonTimeExpired
		}
		p.logger.Info(ctx, "retrying scoring for unscored round",
			logger.String("roundID", r.ID), logger.String("reason", reason))
		if err := p.engine.Score(ctx, r, reason); err != nil {
			p.logger.Error(ctx, "retry scoring failed",
				logger.String("roundID", r.ID), logger.Error(err))
		}
	}
}
