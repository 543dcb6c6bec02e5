package api

import (
	"encoding/json"
	"net/http"

	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// SubmissionsHandler serves the submission endpoint.
type SubmissionsHandler struct {
	deps Dependencies
}

// NewSubmissionsHandler creates a submissions handler.
func NewSubmissionsHandler(deps Dependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

type submissionRequest struct {
	ParticipantID string `json:"participant_id"`
	Action        string `json:"action"`
	Answer        string `json:"answer,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
}

// HandlePostSubmission handles POST /rounds/{id}/submissions. The first
// accepted submission per participant wins; later ones get DUPLICATE.
func (h *SubmissionsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request, roundID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind("submit", ErrBadPayload, err))
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind("submit", ErrBadRequest))
		return
	}
	sub := model.Submission{
		RoundID:       roundID,
		ParticipantID: req.ParticipantID,
		Action:        model.Action(req.Action),
		Answer:        req.Answer,
		TargetID:      req.TargetID,
	}
	if err := h.deps.Submit(r.Context(), sub); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
