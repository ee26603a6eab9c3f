package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/strategist/internal/database"
	"github.com/aristath/strategist/internal/scheduler"
)

// JobRunner lists and triggers scheduled jobs
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	RunByName(name string) error
}

// SystemHandlers serves system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	monitor     *StatusMonitor
	jobs        JobRunner
	ledgerDB    *database.DB
	startupTime time.Time
	sampleStats func() (float64, float64)
}

// SystemStatusResponse is returned by /api/system/status
type SystemStatusResponse struct {
	Status      string        `json:"status"`
	UptimeHours float64       `json:"uptime_hours"`
	CPUPercent  float64       `json:"cpu_percent"`
	RAMPercent  float64       `json:"ram_percent"`
	Engine      *EngineStatus `json:"engine,omitempty"`
	JobCount    int           `json:"job_count"`
	LastUpdated string        `json:"last_updated"`
}

// DatabaseStatsResponse is returned by /api/system/database/stats
type DatabaseStatsResponse struct {
	Name          string `json:"name"`
	SizeBytes     int64  `json:"size_bytes"`
	WALSizeBytes  int64  `json:"wal_size_bytes"`
	PageCount     int64  `json:"page_count"`
	PageSize      int64  `json:"page_size"`
	FreelistCount int64  `json:"freelist_count"`
}

// JobsStatusResponse is returned by /api/system/jobs
type JobsStatusResponse struct {
	Jobs []scheduler.JobInfo `json:"jobs"`
}

// NewSystemHandlers creates a new system handlers instance.
// monitor, jobs and ledgerDB may be nil.
func NewSystemHandlers(log zerolog.Logger, monitor *StatusMonitor, jobs JobRunner, ledgerDB *database.DB) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("service", "system").Logger(),
		monitor:     monitor,
		jobs:        jobs,
		ledgerDB:    ledgerDB,
		startupTime: time.Now(),
	}
	h.sampleStats = h.getSystemStats
	return h
}

// HandleSystemStatus returns host resource usage and the engine status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.sampleStats()

	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	if h.monitor != nil {
		engine := h.monitor.Engine()
		response.Engine = &engine
		if engine.Checked && !engine.Reachable {
			response.Status = "degraded"
		}
	}
	if h.jobs != nil {
		response.JobCount = len(h.jobs.Jobs())
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleEngineStatus returns the last engine probe.
// ?refresh=true probes the engine before answering.
func (h *SystemHandlers) HandleEngineStatus(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.writeError(w, http.StatusServiceUnavailable, "engine monitor not configured")
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		if err := h.monitor.Check(r.Context()); err != nil {
			h.log.Debug().Err(err).Msg("Engine probe failed")
		}
	}

	h.writeJSON(w, http.StatusOK, h.monitor.Engine())
}

// HandleDatabaseStats returns ledger database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.ledgerDB == nil {
		h.writeError(w, http.StatusNotFound, "ledger statistics are only available for the sqlite store")
		return
	}

	stats, err := h.ledgerDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get ledger stats")
		h.writeError(w, http.StatusInternalServerError, "failed to get database stats")
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:          h.ledgerDB.Name(),
		SizeBytes:     stats.SizeBytes,
		WALSizeBytes:  stats.WALSizeBytes,
		PageCount:     stats.PageCount,
		PageSize:      stats.PageSize,
		FreelistCount: stats.FreelistCount,
	})
}

// HandleJobsStatus lists scheduled jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	response := JobsStatusResponse{Jobs: []scheduler.JobInfo{}}
	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob runs a registered job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := h.jobs.RunByName(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		h.writeJSON(w, http.StatusOK, map[string]string{
			"status": "failed",
			"job":    name,
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job":    name,
	})
}

// getSystemStats calculates CPU and RAM usage percentages over a short window
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
