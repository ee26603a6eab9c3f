package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{uid}", h.HandleGetPortfolio)          // Portfolio lookup
	r.Get("/portfolios/{uid}/holdings", h.HandleGetHoldings) // Aggregated holdings
}
