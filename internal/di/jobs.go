package di

import (
	"fmt"

	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/internal/scheduler"
	"github.com/rs/zerolog"
)

// Ledger integrity runs hourly
const checkLedgerSchedule = "0 0 * * * *"

// RegisterJobs creates the scheduler and registers background jobs. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)

	if container.StatusMonitor != nil {
		job := scheduler.NewEngineHealthJob(container.StatusMonitor, cfg.Engine.Timeout, log)
		if err := sched.AddJob(cfg.Engine.HealthSchedule, job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
	}

	if container.LedgerDB != nil {
		job := scheduler.NewCheckLedgerJob(container.LedgerDB, log)
		if err := sched.AddJob(checkLedgerSchedule, job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
	}

	if container.BackupService != nil {
		job := scheduler.NewLedgerBackupJob(container.BackupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
