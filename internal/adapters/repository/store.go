// Package repository defines the durable round/submission/score store.
//
// The store owns the only shared mutable state in the system: round status
// and the submission set. All mutation goes through its atomic primitives
// (idempotent inserts, compare-and-swap status transitions); the scoring
// engine never caches or mutates this state itself.
package repository

import (
	"context"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// Store provides transactional access to rounds, rosters, submissions, and
// scores for one service instance.
type Store interface {
	// CreateRound inserts a new PENDING round.
	CreateRound(ctx context.Context, r model.Round) error

	// GetRound returns a round by id, or ErrRoundNotFound.
	GetRound(ctx context.Context, id string) (model.Round, error)

	// StartRound flips PENDING -> ACTIVE and records the start time.
	// Returns ErrRoundNotPending if the round already left PENDING.
	StartRound(ctx context.Context, id string, now time.Time) (model.Round, error)

	// TryComplete atomically flips ACTIVE -> COMPLETED, recording the end
	// time and reason. The bool reports whether this caller won the
	// transition; a false result with nil error means another caller
	// completed the round first and the loser must skip the scoring
	// pipeline.
	TryComplete(ctx context.Context, id string, now time.Time, reason string) (model.Round, bool, error)

	// ListExpired returns ACTIVE rounds whose expiry instant is at or
	// before now.
	ListExpired(ctx context.Context, now time.Time) ([]model.Round, error)

	// ListUnscored returns COMPLETED rounds whose ScoredAt is unset, i.e.
	// rounds whose scoring pipeline failed and needs a retry. Scored-ness
	// is tracked explicitly so a round scoring to zero rows (empty roster)
	// is not retried forever.
	ListUnscored(ctx context.Context) ([]model.Round, error)

	// AddParticipants extends the round's roster. Adding an id twice is a
	// no-op.
	AddParticipants(ctx context.Context, roundID string, ids []string) error

	// ListParticipants returns the roster in registration order.
	ListParticipants(ctx context.Context, roundID string) ([]string, error)

	// PutSubmission records one participant's action. Writes are guarded
	// to ACTIVE rounds (ErrRoundNotActive), keyed idempotently on
	// (round, participant) (ErrDuplicateSubmission), and delegation
	// targets must be on the roster (ErrInvalidTarget). The submitting
	// participant must be on the roster (ErrUnknownParticipant).
	PutSubmission(ctx context.Context, s model.Submission) error

	// SynthesizePasses inserts PASS submissions for the given participants
	// where none exist yet. Insert-if-absent, so completion retries cannot
	// double-synthesize.
	SynthesizePasses(ctx context.Context, roundID string, ids []string, now time.Time) error

	// ListSubmissions returns all submissions for a round.
	ListSubmissions(ctx context.Context, roundID string) ([]model.Submission, error)

	// UpsertScores writes the round's scores in bulk and stamps the round
	// as scored at now. Scores are a pure function of submissions and
	// params, so overwriting is deterministic and safe.
	UpsertScores(ctx context.Context, roundID string, scores []model.RoundScore, now time.Time) error

	// ListScores returns the persisted scores for a round.
	ListScores(ctx context.Context, roundID string) ([]model.RoundScore, error)

	// CountByStatus returns the number of rounds per status, for stats and
	// gauges.
	CountByStatus(ctx context.Context) (map[model.RoundStatus]int, error)
}
