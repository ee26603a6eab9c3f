package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all execution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/portfolios/{uid}/strategies/{strategyId}/execute", h.HandleExecuteStrategy)
}
