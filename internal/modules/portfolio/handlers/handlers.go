// Package handlers provides HTTP handlers for portfolio queries.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/strategist/internal/domain"
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HoldingsProvider is the read side of portfolio.Service
type HoldingsProvider interface {
	GetPortfolio(ctx context.Context, uid string) (domain.Portfolio, error)
	GetHoldings(ctx context.Context, uid string) (domain.Portfolio, portfolio.Holdings, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service HoldingsProvider
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service HoldingsProvider, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HoldingResponse is one aggregated position
type HoldingResponse struct {
	Symbol       string          `json:"symbol"`
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"averageCost"`
	RealizedGain decimal.Decimal `json:"realizedGain"`
	CostBasis    decimal.Decimal `json:"costBasis"`
}

// HoldingsResponse is the body of GET /portfolios/{uid}/holdings
type HoldingsResponse struct {
	Portfolio domain.Portfolio  `json:"portfolio"`
	Assets    []HoldingResponse `json:"assets"`
}

// HandleGetPortfolio returns a single portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	p, err := h.service.GetPortfolio(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, uid, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandleGetHoldings returns the holdings aggregated from the portfolio's ledger
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	p, holdings, err := h.service.GetHoldings(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, uid, err)
		return
	}

	sorted := holdings.Sorted()
	assets := make([]HoldingResponse, 0, len(sorted))
	for _, a := range sorted {
		assets = append(assets, HoldingResponse{
			Symbol:       a.Asset.Symbol,
			Kind:         string(a.Asset.Kind),
			Quantity:     a.Quantity,
			AverageCost:  a.AverageCost,
			RealizedGain: a.RealizedGain,
			CostBasis:    a.CostBasis(),
		})
	}

	h.writeJSON(w, http.StatusOK, HoldingsResponse{Portfolio: p, Assets: assets})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, uid string, err error) {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, portfolio.ErrInsufficientHoldings):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Str("portfolio_uid", uid).Msg("Portfolio query failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load portfolio")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
