package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EngineProber checks the execution engine's liveness
type EngineProber interface {
	HealthCheck(ctx context.Context) error
	BaseURL() string
}

// EngineStatus is the result of the last engine probe
type EngineStatus struct {
	URL       string `json:"url"`
	Checked   bool   `json:"checked"`
	Reachable bool   `json:"reachable"`
	LastCheck string `json:"last_check,omitempty"`
	Message   string `json:"message,omitempty"`
}

// StatusMonitor remembers the last engine probe and logs reachability changes
type StatusMonitor struct {
	prober EngineProber
	now    func() time.Time
	log    zerolog.Logger

	mu     sync.RWMutex
	status EngineStatus
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(prober EngineProber, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		prober: prober,
		now:    time.Now,
		log:    log.With().Str("component", "status_monitor").Logger(),
		status: EngineStatus{URL: prober.BaseURL()},
	}
}

// Check probes the engine and records the result
func (m *StatusMonitor) Check(ctx context.Context) error {
	err := m.prober.HealthCheck(ctx)

	m.mu.Lock()
	previous := m.status
	m.status = EngineStatus{
		URL:       m.prober.BaseURL(),
		Checked:   true,
		Reachable: err == nil,
		LastCheck: m.now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		m.status.Message = err.Error()
	}
	current := m.status
	m.mu.Unlock()

	if !previous.Checked || previous.Reachable != current.Reachable {
		if current.Reachable {
			m.log.Info().Str("url", current.URL).Msg("Execution engine reachable")
		} else {
			m.log.Warn().Str("url", current.URL).Str("reason", current.Message).Msg("Execution engine unreachable")
		}
	}

	return err
}

// Engine returns the last recorded engine status
func (m *StatusMonitor) Engine() EngineStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
