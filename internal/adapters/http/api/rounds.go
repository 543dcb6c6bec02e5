package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/types"
)

// RoundsHandler serves round lifecycle endpoints.
type RoundsHandler struct {
	deps Dependencies
}

// NewRoundsHandler creates a rounds handler.
func NewRoundsHandler(deps Dependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// roundResponse is the wire shape for a round. The correct answer is never
// exposed, and the duration is rendered in seconds.
type roundResponse struct {
	ID              string     `json:"id"`
	GameID          string     `json:"game_id"`
	LobbyID         string     `json:"lobby_id"`
	RoundNumber     int        `json:"round_number"`
	Question        string     `json:"question"`
	DurationSeconds int        `json:"duration_seconds"`
	Status          string     `json:"status"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toRoundResponse(r model.Round) roundResponse {
	resp := roundResponse{
		ID:              r.ID,
		GameID:          r.GameID,
		LobbyID:         r.LobbyID,
		RoundNumber:     r.RoundNumber,
		Question:        r.Question,
		DurationSeconds: int(r.Duration / time.Second),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
	}
	if !r.StartTime.IsZero() {
		start := r.StartTime
		resp.StartTime = &start
		exp := r.ExpiresAt()
		resp.ExpiresAt = &exp
	}
	if !r.EndTime.IsZero() {
		end := r.EndTime
		resp.EndTime = &end
	}
	return resp
}

type endRoundResponse struct {
	roundResponse
	Completed bool `json:"completed"`
}

type participantsRequest struct {
	Participants []string `json:"participants"`
}

// HandleCreateRound handles POST /rounds.
func (h *RoundsHandler) HandleCreateRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	var spec types.RoundSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind("create round", ErrBadPayload, err))
		return
	}
	round, err := h.deps.CreateRound(r.Context(), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoundResponse(round))
}

// HandleGetRound handles GET /rounds/{id}.
func (h *RoundsHandler) HandleGetRound(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	round, err := h.deps.GetRound(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleStartRound handles POST /rounds/{id}/start.
func (h *RoundsHandler) HandleStartRound(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	round, err := h.deps.StartRound(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleEndRound handles POST /rounds/{id}/end. Ending an already completed
// round is not an error; Completed reports whether this request did it.
func (h *RoundsHandler) HandleEndRound(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	round, completed, err := h.deps.EndRound(r.Context(), roundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, endRoundResponse{
		roundResponse: toRoundResponse(round),
		Completed:     completed,
	})
}

// HandleAddParticipants handles POST /rounds/{id}/participants.
func (h *RoundsHandler) HandleAddParticipants(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	var req participantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind("add participants", ErrBadPayload, err))
		return
	}
	if len(req.Participants) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind("add participants", ErrBadRequest))
		return
	}
	if err := h.deps.AddParticipants(r.Context(), roundID, req.Participants); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(req.Participants)})
}

// splitRoundPath parses /rounds/{id} and /rounds/{id}/{sub} paths.
func splitRoundPath(path string) (id, sub string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/rounds/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}
