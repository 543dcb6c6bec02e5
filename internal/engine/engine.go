// Package engine runs the round-completion scoring pipeline: complete the
// round, reconcile the roster, build the delegation graph, propagate
// scores, persist them, and notify clients.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/notify"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/graph"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/guard"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/scoring"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
	"github.com/koderAP/trust-gambit-sub000/pkg/metrics"
)

// Engine drives scoring for completed rounds. It holds no graph state
// between runs; every run reads a fresh snapshot from the store.
type Engine struct {
	store      repository.Store
	notifier   notify.Notifier
	propagator *scoring.Propagator

	now    func() time.Time
	logger logger.Logger

	// inflight guards against scoring the same round concurrently, e.g.
	// a retry tick overlapping a slow first run.
	inflight guard.Guard
}

// New creates an Engine with configuration options.
func New(store repository.Store, notifier notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		notifier:   notifier,
		propagator: scoring.New(),
		now:        time.Now,
		inflight:   guard.NewInMemoryGuard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	return e
}

// Complete transitions the round ACTIVE -> COMPLETED and, if this caller won
// the transition, runs the scoring pipeline. The bool reports whether the
// transition was won; losers of the race skip scoring entirely. A scoring
// error leaves the round COMPLETED and unscored, eligible for retry.
func (e *Engine) Complete(ctx context.Context, roundID, reason string) (bool, error) {
	round, won, err := e.store.TryComplete(ctx, roundID, e.now(), reason)
	if err != nil {
		return false, fmt.Errorf("complete round %s: %w", roundID, err)
	}
	if !won {
		return false, nil
	}
	metrics.RecordRoundCompleted(reason)
	e.logger.Info(ctx, "round completed",
		logger.String("roundID", roundID),
		logger.String("reason", reason),
	)

	if err := e.Score(ctx, round, reason); err != nil {
		// Status never reverts; the poller retries scoring later.
		return true, fmt.Errorf("score round %s: %w", roundID, err)
	}
	return true, nil
}

// Score runs the pipeline for an already-COMPLETED round: synthesize PASS
// submissions for silent roster members, build the graph, mark cycles,
// propagate scores, persist, notify. Re-running it for the same inputs
// rewrites identical scores.
func (e *Engine) Score(ctx context.Context, round model.Round, reason string) error {
	if !e.inflight.TryAcquire(ctx, round.ID) {
		return nil
	}
	defer e.inflight.Release(ctx, round.ID)

	start := time.Now()
	metrics.RecordScoringRun()

	if err := round.Params.Validate(); err != nil {
		metrics.RecordScoringError()
		return fmt.Errorf("round %s: %w", round.ID, err)
	}

	roster, err := e.store.ListParticipants(ctx, round.ID)
	if err != nil {
		metrics.RecordScoringError()
		return fmt.Errorf("list participants: %w", err)
	}

	subs, err := e.store.ListSubmissions(ctx, round.ID)
	if err != nil {
		metrics.RecordScoringError()
		return fmt.Errorf("list submissions: %w", err)
	}

	// Materialize silence as explicit PASS rows, then reread so scoring
	// works from the persisted snapshot.
	if silent := missingFrom(roster, subs); len(silent) > 0 {
		if err := e.store.SynthesizePasses(ctx, round.ID, silent, e.now()); err != nil {
			metrics.RecordScoringError()
			return fmt.Errorf("synthesize passes: %w", err)
		}
		metrics.RecordPassesSynthesized(len(silent))
		if subs, err = e.store.ListSubmissions(ctx, round.ID); err != nil {
			metrics.RecordScoringError()
			return fmt.Errorf("list submissions: %w", err)
		}
	}

	g := graph.Build(roster, subs, round.CorrectAnswer)
	g.MarkCycles()
	results := e.propagator.Evaluate(g, round.Params)

	scores := make([]model.RoundScore, len(results))
	cycleCount := 0
	for i, res := range results {
		scores[i] = model.RoundScore{
			RoundID:       round.ID,
			ParticipantID: res.ParticipantID,
			TotalScore:    res.Score,
			InCycle:       res.InCycle,
			Distance:      res.Distance,
		}
		if res.InCycle {
			cycleCount++
		}
	}

	if err := e.store.UpsertScores(ctx, round.ID, scores, e.now()); err != nil {
		metrics.RecordScoringError()
		return fmt.Errorf("upsert scores: %w", err)
	}

	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordScoredParticipants(len(scores))
	metrics.RecordCycleMembers(cycleCount)
	e.logger.Info(ctx, "round scored",
		logger.String("roundID", round.ID),
		logger.Int("participants", len(scores)),
		logger.Int("cycleMembers", cycleCount),
	)

	e.notifier.RoundEnded(ctx, model.RoundEnded{
		RoundID:     round.ID,
		GameID:      round.GameID,
		LobbyID:     round.LobbyID,
		RoundNumber: round.RoundNumber,
		EndTime:     round.EndTime,
		Reason:      reason,
	})
	return nil
}

// missingFrom returns roster ids that have no submission yet.
func missingFrom(roster []string, subs []model.Submission) []string {
	seen := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		seen[s.ParticipantID] = struct{}{}
	}
	var out []string
	for _, id := range roster {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
