package api

import (
	"net/http"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/types"
)

// ScoresHandler serves the scoreboard endpoint.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScores handles GET /rounds/{id}/scores.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	scores, pending, err := h.deps.Scores(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	round, err := h.deps.GetRound(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scores == nil {
		scores = []model.RoundScore{}
	}
	writeJSON(w, http.StatusOK, types.Scoreboard{
		RoundID:        roundID,
		Status:         round.Status,
		ScoringPending: pending,
		Scores:         scores,
	})
}
