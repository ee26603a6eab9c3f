// Package handlers provides HTTP handlers for strategy execution.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/strategist/internal/modules/execution"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OutcomeHeader names the failure kind on error responses
const OutcomeHeader = "X-Execution-Outcome"

// FailureStatus is the single status used for every failed execution.
// Callers tell failures apart by OutcomeHeader.
const FailureStatus = http.StatusBadRequest

// maxRequestBytes caps the request body (strategy scripts included)
const maxRequestBytes = 1 << 20

// Executor runs strategies
type Executor interface {
	Execute(ctx context.Context, req execution.ExecuteRequest) (*execution.Outcome, error)
}

// Handler handles strategy execution HTTP requests
type Handler struct {
	executor Executor
	log      zerolog.Logger
}

// NewHandler creates a new execution handler
func NewHandler(executor Executor, log zerolog.Logger) *Handler {
	return &Handler{
		executor: executor,
		log:      log.With().Str("handler", "execution").Logger(),
	}
}

// ExecuteStrategyRequest is the body of the execute endpoint
type ExecuteStrategyRequest struct {
	UserID       string `json:"userId"`
	StrategyCode string `json:"strategyCode"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

// HandleExecuteStrategy runs a strategy against the portfolio's current holdings.
// On success the engine's body is relayed as-is.
func (h *Handler) HandleExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	var body ExecuteStrategyRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&body); err != nil {
		h.writeFailure(w, execution.KindInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.executor.Execute(r.Context(), execution.ExecuteRequest{
		PortfolioUID: chi.URLParam(r, "uid"),
		UserID:       body.UserID,
		StrategyID:   chi.URLParam(r, "strategyId"),
		StrategyCode: body.StrategyCode,
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
	})
	if err != nil {
		var execErr *execution.Error
		if errors.As(err, &execErr) {
			h.writeFailure(w, execErr.Kind, execErr.Message)
			return
		}
		h.log.Error().Err(err).Msg("Unexpected execution error")
		h.writeFailure(w, execution.KindInternal, "strategy execution failed")
		return
	}

	contentType := outcome.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if outcome.RequestID != "" {
		w.Header().Set("X-Engine-Request-ID", outcome.RequestID)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(outcome.Body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to relay engine response")
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, kind execution.Kind, message string) {
	w.Header().Set(OutcomeHeader, string(kind))
	h.writeJSON(w, FailureStatus, map[string]string{"detail": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
