// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/notify"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	service "github.com/koderAP/trust-gambit-sub000/internal/app"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/types"
	"github.com/koderAP/trust-gambit-sub000/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	CreateRound(ctx context.Context, spec types.RoundSpec) (model.Round, error)
	StartRound(ctx context.Context, roundID string) (model.Round, error)
	EndRound(ctx context.Context, roundID string) (model.Round, bool, error)
	AddParticipants(ctx context.Context, roundID string, ids []string) error
	Submit(ctx context.Context, sub model.Submission) error
	GetRound(ctx context.Context, roundID string) (model.Round, error)
	Scores(ctx context.Context, roundID string) ([]model.RoundScore, bool, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	roundsHandler      *RoundsHandler
	submissionsHandler *SubmissionsHandler
	scoresHandler      *ScoresHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	wsHandler          http.HandlerFunc
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, hub *notify.Hub) *Server {
	return &Server{
		roundsHandler:      NewRoundsHandler(deps),
		submissionsHandler: NewSubmissionsHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		wsHandler:          notify.Handler(hub),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rounds", MetricsMiddleware(s.roundsHandler.HandleCreateRound, "rounds"))
	mux.HandleFunc("/rounds/", MetricsMiddleware(s.routeRound, "round"))
	mux.HandleFunc("/ws", s.wsHandler)
}

// routeRound dispatches /rounds/{id}[/subresource] requests.
func (s *Server) routeRound(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := splitRoundPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	switch sub {
	case "":
		s.roundsHandler.HandleGetRound(w, r, id)
	case "start":
		s.roundsHandler.HandleStartRound(w, r, id)
	case "end":
		s.roundsHandler.HandleEndRound(w, r, id)
	case "participants":
		s.roundsHandler.HandleAddParticipants(w, r, id)
	case "submissions":
		s.submissionsHandler.HandlePostSubmission(w, r, id)
	case "scores":
		s.scoresHandler.HandleGetScores(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates store and service errors into HTTP responses,
// using the rejection codes the submission contract names.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrRoundNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrRoundNotActive):
		writeError(w, http.StatusConflict, "ROUND_NOT_ACTIVE", err)
	case errors.Is(err, repository.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "DUPLICATE", err)
	case errors.Is(err, repository.ErrInvalidTarget):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TARGET", err)
	case errors.Is(err, repository.ErrUnknownParticipant):
		writeError(w, http.StatusUnprocessableEntity, "UNKNOWN_PARTICIPANT", err)
	case errors.Is(err, repository.ErrRoundNotPending):
		writeError(w, http.StatusConflict, "round_not_pending", err)
	case errors.Is(err, repository.ErrRoundExists):
		writeError(w, http.StatusConflict, "round_exists", err)
	case errors.Is(err, service.ErrInvalidRound),
		errors.Is(err, model.ErrMissingAnswer),
		errors.Is(err, model.ErrMissingTarget),
		errors.Is(err, model.ErrExtraneousField),
		errors.Is(err, model.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
