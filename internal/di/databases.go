// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/internal/database"
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the ledger backend selected by STORE_DRIVER and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := database.NewPostgres(database.PostgresOption{
			ConnString: cfg.Store.PostgresDSN,
			Verbose:    cfg.DevMode,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres ledger: %w", err)
		}

		store := portfolio.NewGormStore(pg.Gorm(), log)
		if err := store.Migrate(); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to migrate postgres ledger: %w", err)
		}

		container.Postgres = pg
		container.Store = store

	default:
		// ledger.db - portfolios and their transaction history
		ledgerDB, err := database.New(database.Config{
			Path:    cfg.LedgerPath(),
			Profile: database.ProfileLedger,
			Name:    "ledger",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
		}

		if err := ledgerDB.Migrate(); err != nil {
			ledgerDB.Close()
			return nil, fmt.Errorf("failed to migrate ledger database: %w", err)
		}

		container.LedgerDB = ledgerDB
		container.Store = portfolio.NewSQLiteStore(ledgerDB.Conn(), log)
	}

	log.Info().Str("driver", cfg.Store.Driver).Msg("Ledger store initialized")
	return container, nil
}
