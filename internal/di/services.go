package di

import (
	"context"
	"fmt"

	"github.com/aristath/strategist/internal/clients/engine"
	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/internal/modules/execution"
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/aristath/strategist/internal/reliability"
	"github.com/aristath/strategist/internal/server"
	"github.com/rs/zerolog"
)

// InitializeServices builds clients and services on top of the container's store
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.Store == nil {
		return fmt.Errorf("ledger store not initialized")
	}

	container.EngineClient = engine.NewClient(cfg.Engine.URL, cfg.Engine.Timeout, log)
	container.PortfolioService = portfolio.NewService(container.Store, container.Store, log)
	container.Dispatcher = execution.NewDispatcher(
		container.Store,
		container.Store,
		container.EngineClient,
		cfg.Engine.DetailPath,
		log,
	)
	container.StatusMonitor = server.NewStatusMonitor(container.EngineClient, log)

	if cfg.Backup.Enabled {
		if container.LedgerDB == nil {
			return fmt.Errorf("ledger backups require the sqlite store")
		}

		s3Client, err := reliability.NewS3Client(ctx, reliability.S3Options{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}

		container.BackupService = reliability.NewBackupService(
			s3Client,
			container.LedgerDB,
			cfg.DataDir,
			cfg.Backup.Prefix,
			cfg.Backup.RetentionDays,
			log,
		)
	}

	log.Info().Str("engine_url", cfg.Engine.URL).Msg("Services initialized")
	return nil
}
