package di

import (
	"errors"

	"github.com/aristath/strategist/internal/clients/engine"
	"github.com/aristath/strategist/internal/database"
	"github.com/aristath/strategist/internal/modules/execution"
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/aristath/strategist/internal/reliability"
	"github.com/aristath/strategist/internal/scheduler"
	"github.com/aristath/strategist/internal/server"
)

// Container holds every wired dependency
type Container struct {
	// Exactly one of LedgerDB and Postgres is set, depending on STORE_DRIVER
	LedgerDB *database.DB
	Postgres *database.Postgres

	// Repositories
	Store portfolio.Store

	// Clients
	EngineClient *engine.Client

	// Services
	PortfolioService *portfolio.Service
	Dispatcher       *execution.Dispatcher
	StatusMonitor    *server.StatusMonitor
	BackupService    *reliability.BackupService // nil unless BACKUP_ENABLED

	Scheduler *scheduler.Scheduler
}

// Close releases database connections
func (c *Container) Close() error {
	var errs []error
	if c.LedgerDB != nil {
		errs = append(errs, c.LedgerDB.Close())
	}
	if c.Postgres != nil {
		errs = append(errs, c.Postgres.Close())
	}
	return errors.Join(errs...)
}
