// Package types contains common types shared between the service and the
// HTTP surface.
package types

import (
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// RoundSpec is the round-creation request.
type RoundSpec struct {
	GameID          string               `json:"game_id"`
	LobbyID         string               `json:"lobby_id"`
	RoundNumber     int                  `json:"round_number"`
	Question        string               `json:"question"`
	CorrectAnswer   string               `json:"correct_answer"`
	DurationSeconds int                  `json:"duration_seconds"`
	Params          *model.ScoringParams `json:"params,omitempty"`
	Participants    []string             `json:"participants,omitempty"`
}

// Duration converts the requested round length.
func (s RoundSpec) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// Scoreboard is the read shape for a round's scores. ScoringPending is set
// when the round completed but its scores have not been persisted yet
// (pipeline failure awaiting retry).
type Scoreboard struct {
	RoundID        string             `json:"round_id"`
	Status         model.RoundStatus  `json:"status"`
	ScoringPending bool               `json:"scoring_pending"`
	Scores         []model.RoundScore `json:"scores"`
}
