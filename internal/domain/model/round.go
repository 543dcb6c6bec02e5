// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// Action is the choice a participant makes in a round.
type Action string

// Actions a participant can take.
const (
	ActionSolve    Action = "SOLVE"
	ActionDelegate Action = "DELEGATE"
	ActionPass     Action = "PASS"
)

// RoundStatus tracks the round state machine. Transitions are monotonic:
// PENDING -> ACTIVE -> COMPLETED, and COMPLETED is terminal.
type RoundStatus string

const (
	StatusPending   RoundStatus = "PENDING"
	StatusActive    RoundStatus = "ACTIVE"
	StatusCompleted RoundStatus = "COMPLETED"
)

// End reasons carried in RoundEnded notifications.
const (
	ReasonTimeExpired = "TIME_EXPIRED"
	ReasonAdminEnded  = "ADMIN_ENDED"
)

// Sentinel kinds for submission validation.
var (
	ErrMissingAnswer   = errors.New("solve submission requires an answer")
	ErrMissingTarget   = errors.New("delegate submission requires a target")
	ErrExtraneousField = errors.New("field not allowed for action")
	ErrUnknownAction   = errors.New("unknown action")

	// ErrInvalidParams marks unusable scoring parameters; a round carrying
	// them cannot be scored until repaired.
	ErrInvalidParams = errors.New("invalid scoring params")
)

// ScoringParams configures the delegation-graph score propagation for a round.
// Lambda scales the reward for delegating to a correct chain, Beta scales the
// trust bonus a correct solver earns per direct delegator, Gamma scales cycle
// penalties, PassScore is the flat score for passing.
type ScoringParams struct {
	Lambda    float64 `json:"lambda"`
	Beta      float64 `json:"beta"`
	Gamma     float64 `json:"gamma"`
	PassScore float64 `json:"pass_score"`
}

// Validate rejects negative coefficients. Zero values are legal.
func (p ScoringParams) Validate() error {
	if p.Lambda < 0 || p.Beta < 0 || p.Gamma < 0 {
		return ErrInvalidParams
	}
	return nil
}

// Round is one question posed to a lobby with a wall-clock expiry.
type Round struct {
	ID            string        `json:"id"`
	GameID        string        `json:"game_id"`
	LobbyID       string        `json:"lobby_id"`
	RoundNumber   int           `json:"round_number"`
	Question      string        `json:"question"`
	CorrectAnswer string        `json:"-"`
	Duration      time.Duration `json:"duration"`
	Params        ScoringParams `json:"params"`
	Status        RoundStatus   `json:"status"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	EndReason     string        `json:"end_reason,omitempty"`
	ScoredAt      time.Time     `json:"scored_at,omitzero"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Scored reports whether the round's scores have been persisted. A completed
// round with a zero ScoredAt is awaiting a scoring retry; the score row count
// cannot stand in for this because an empty roster scores to zero rows.
func (r Round) Scored() bool {
	return !r.ScoredAt.IsZero()
}

// ExpiresAt is the instant after which an active round is due for completion.
func (r Round) ExpiresAt() time.Time {
	return r.StartTime.Add(r.Duration)
}

// Expired reports whether an active round is past its expiry at now.
func (r Round) Expired(now time.Time) bool {
	return r.Status == StatusActive && !now.Before(r.ExpiresAt())
}

// Submission is one participant's action in a round. At most one exists per
// (round, participant); the store enforces that with an idempotent insert.
type Submission struct {
	RoundID       string    `json:"round_id"`
	ParticipantID string    `json:"participant_id"`
	Action        Action    `json:"action"`
	Answer        string    `json:"answer,omitempty"`
	TargetID      string    `json:"target_id,omitempty"`
	Synthesized   bool      `json:"synthesized,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Validate checks the per-action field invariants.
func (s Submission) Validate() error {
	switch s.Action {
	case ActionSolve:
		if strings.TrimSpace(s.Answer) == "" {
			return ErrMissingAnswer
		}
		if s.TargetID != "" {
			return ErrExtraneousField
		}
	case ActionDelegate:
		if s.TargetID == "" {
			return ErrMissingTarget
		}
		if strings.TrimSpace(s.Answer) != "" {
			return ErrExtraneousField
		}
	case ActionPass:
		// carries neither answer nor target
		if strings.TrimSpace(s.Answer) != "" || s.TargetID != "" {
			return ErrExtraneousField
		}
	default:
		return ErrUnknownAction
	}
	return nil
}

// AnswerCorrect compares a submitted answer against the round's correct
// answer, ignoring case and surrounding whitespace.
func AnswerCorrect(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// RoundScore is the persisted scoring outcome for one participant. Distance
// is the hop count to the chain's terminus; it is nil for passers, cycle
// members, and delegators whose target is missing.
type RoundScore struct {
	RoundID       string  `json:"round_id"`
	ParticipantID string  `json:"participant_id"`
	TotalScore    float64 `json:"total_score"`
	InCycle       bool    `json:"in_cycle"`
	Distance      *int    `json:"distance"`
}

// RoundEnded is the completion notification fanned out to clients.
type RoundEnded struct {
	RoundID     string    `json:"round_id"`
	GameID      string    `json:"game_id"`
	LobbyID     string    `json:"lobby_id"`
	RoundNumber int       `json:"round_number"`
	EndTime     time.Time `json:"end_time"`
	Reason      string    `json:"reason"`
}
