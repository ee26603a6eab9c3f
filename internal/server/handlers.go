package server

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/strategist/internal/version"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Service string        `json:"service"`
	Engine  *EngineStatus `json:"engine,omitempty"`
}

// handleHealth handles health check requests.
// The service stays healthy while the engine is down; the engine is reported separately.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Service: "strategist",
	}
	if s.monitor != nil {
		engine := s.monitor.Engine()
		response.Engine = &engine
		if engine.Checked && !engine.Reachable {
			response.Status = "degraded"
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
