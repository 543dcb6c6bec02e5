// Package service provides the core business service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/queue"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/worker"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/notify"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	"github.com/koderAP/trust-gambit-sub000/internal/config"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/types"
	"github.com/koderAP/trust-gambit-sub000/internal/engine"
	"github.com/koderAP/trust-gambit-sub000/internal/scheduler"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
	"github.com/koderAP/trust-gambit-sub000/pkg/metrics"
)

// Service wires the store, scoring engine, expiry poller, and notification
// hub, and exposes the operations the HTTP layer depends on.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	hub    *notify.Hub
	engine *engine.Engine
	poller *scheduler.Poller
	queue  *queue.InMemoryQueue
	pool   *worker.Pool

	// Configuration
	storeBackend     string
	postgresDSN      string
	pollInterval     time.Duration
	minRoundDuration time.Duration
	notifyBuffer     int
	workers          int
	queueSize        int
	defaultParams    model.ScoringParams
	now              func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeBackend:     config.StoreMemory,
		pollInterval:     5 * time.Second,
		minRoundDuration: 30 * time.Second,
		notifyBuffer:     64,
		workers:          4,
		queueSize:        1024,
		defaultParams:    model.ScoringParams{Lambda: 0.6, Beta: 0.2, Gamma: 0.4},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the components and launches the expiry poller.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		switch s.storeBackend {
		case config.StorePostgres:
			pg, err := repository.NewPGStore(ctx, s.postgresDSN)
			if err != nil {
				return fmt.Errorf("init postgres store: %w", err)
			}
			s.store = pg
			s.logger.Info(ctx, "using postgres store")
		default:
			s.store = repository.NewMemStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	s.hub = notify.NewHub(
		notify.WithBuffer(s.notifyBuffer),
		notify.WithLogger(s.logger.Named("notify")),
	)
	s.engine = engine.New(s.store, s.hub,
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithClock(s.now),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workers, s.queue, s.engine)
	s.pool.Start(ctx)

	s.poller = scheduler.New(s.store, s.engine,
		scheduler.WithInterval(s.pollInterval),
		scheduler.WithClock(s.now),
		scheduler.WithLogger(s.logger.Named("poller")),
		scheduler.WithQueue(s.queue),
	)
	s.poller.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "trust-gambit service started",
		logger.Duration("pollInterval", s.pollInterval),
		logger.String("store", s.storeBackend),
	)
	return nil
}

// Stop shuts the poller down and closes the store if it is closable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.poller.Stop()
	_ = s.pool.Shutdown(context.Background())
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "trust-gambit service stopped")
}

// CreateRound registers a new PENDING round and its initial roster.
func (s *Service) CreateRound(ctx context.Context, spec types.RoundSpec) (model.Round, error) {
	if spec.CorrectAnswer == "" {
		return model.Round{}, fmt.Errorf("%w: correct answer required", ErrInvalidRound)
	}
	if spec.Duration() < s.minRoundDuration {
		return model.Round{}, fmt.Errorf("%w: duration below %s", ErrInvalidRound, s.minRoundDuration)
	}
	params := s.defaultParams
	if spec.Params != nil {
		params = *spec.Params
	}
	if err := params.Validate(); err != nil {
		return model.Round{}, fmt.Errorf("%w: %w", ErrInvalidRound, err)
	}

	round := model.Round{
		ID:            uuid.NewString(),
		GameID:        spec.GameID,
		LobbyID:       spec.LobbyID,
		RoundNumber:   spec.RoundNumber,
		Question:      spec.Question,
		CorrectAnswer: spec.CorrectAnswer,
		Duration:      spec.Duration(),
		Params:        params,
		Status:        model.StatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateRound(ctx, round); err != nil {
		return model.Round{}, err
	}
	if len(spec.Participants) > 0 {
		if err := s.store.AddParticipants(ctx, round.ID, spec.Participants); err != nil {
			return model.Round{}, err
		}
	}
	s.logger.Info(ctx, "round created",
		logger.String("roundID", round.ID),
		logger.Int("participants", len(spec.Participants)),
	)
	return round, nil
}

// StartRound flips a round PENDING -> ACTIVE; submissions open from here.
func (s *Service) StartRound(ctx context.Context, roundID string) (model.Round, error) {
	return s.store.StartRound(ctx, roundID, s.now())
}

// EndRound is the administrative "end now": it goes through the same CAS as
// the expiry poller, so racing with it completes the round exactly once.
// The bool reports whether this call performed the completion.
func (s *Service) EndRound(ctx context.Context, roundID string) (model.Round, bool, error) {
	won, err := s.engine.Complete(ctx, roundID, model.ReasonAdminEnded)
	if err != nil {
		return model.Round{}, won, err
	}
	round, err := s.store.GetRound(ctx, roundID)
	return round, won, err
}

// AddParticipants extends a round's roster.
func (s *Service) AddParticipants(ctx context.Context, roundID string, ids []string) error {
	return s.store.AddParticipants(ctx, roundID, ids)
}

// Submit records one participant's action for an active round.
func (s *Service) Submit(ctx context.Context, sub model.Submission) error {
	if err := sub.Validate(); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return err
	}
	sub.SubmittedAt = s.now()
	sub.Synthesized = false
	if err := s.store.PutSubmission(ctx, sub); err != nil {
		metrics.RecordSubmissionRejected(rejectReason(err))
		return err
	}
	metrics.RecordSubmission(string(sub.Action))
	return nil
}

// GetRound returns a round by id.
func (s *Service) GetRound(ctx context.Context, roundID string) (model.Round, error) {
	return s.store.GetRound(ctx, roundID)
}

// Scores returns the persisted scores for a round, plus whether scoring is
// still pending (the round completed but scores have not landed yet).
func (s *Service) Scores(ctx context.Context, roundID string) ([]model.RoundScore, bool, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, false, err
	}
	scores, err := s.store.ListScores(ctx, roundID)
	if err != nil {
		return nil, false, err
	}
	pending := round.Status == model.StatusCompleted && !round.Scored()
	return scores, pending, nil
}

// Hub exposes the notification hub for the websocket endpoint.
func (s *Service) Hub() *notify.Hub {
	return s.hub
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"store":        s.storeBackend,
		"pollInterval": s.pollInterval.String(),
	}
	if !s.started {
		return stats
	}

	if counts, err := s.store.CountByStatus(context.Background()); err == nil {
		active := counts[model.StatusActive]
		stats["pendingRounds"] = counts[model.StatusPending]
		stats["activeRounds"] = active
		stats["completedRounds"] = counts[model.StatusCompleted]
		metrics.UpdateActiveRounds(active)
	}
	stats["notifySubscribers"] = s.hub.SubscriberCount()
	stats["queueLength"] = s.queue.Len(context.Background())
	stats["workerCount"] = s.workers
	return stats
}

// rejectReason maps store errors to metric labels.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrRoundNotActive):
		return "round_not_active"
	case errors.Is(err, repository.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, repository.ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, repository.ErrUnknownParticipant):
		return "unknown_participant"
	case errors.Is(err, repository.ErrRoundNotFound):
		return "round_not_found"
	default:
		return "other"
	}
}
