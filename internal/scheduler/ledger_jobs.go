package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/strategist/internal/database"
	"github.com/rs/zerolog"
)

// CheckLedgerJob verifies ledger integrity and checkpoints its WAL
type CheckLedgerJob struct {
	ledgerDB *database.DB
	log      zerolog.Logger
}

// NewCheckLedgerJob creates a new CheckLedgerJob
func NewCheckLedgerJob(ledgerDB *database.DB, log zerolog.Logger) *CheckLedgerJob {
	return &CheckLedgerJob{
		ledgerDB: ledgerDB,
		log:      log.With().Str("job", "check_ledger").Logger(),
	}
}

// Name returns the job name
func (j *CheckLedgerJob) Name() string {
	return "check_ledger"
}

// Run executes the check
func (j *CheckLedgerJob) Run() error {
	if j.ledgerDB == nil {
		j.log.Warn().Msg("Ledger database not initialized, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.ledgerDB.HealthCheck(ctx); err != nil {
		// Corruption cannot be auto-recovered
		j.log.Error().Err(err).Msg("Ledger integrity check failed")
		return fmt.Errorf("ledger is corrupted: %w", err)
	}

	if err := j.ledgerDB.WALCheckpoint("PASSIVE"); err != nil {
		j.log.Warn().Err(err).Msg("Failed to checkpoint ledger WAL")
	}

	j.log.Debug().Msg("Ledger integrity OK")
	return nil
}

// Backuper creates and uploads a ledger backup
type Backuper interface {
	CreateAndUploadBackup(ctx context.Context) error
}

// LedgerBackupJob uploads a ledger snapshot to object storage
type LedgerBackupJob struct {
	backups Backuper
	timeout time.Duration
	log     zerolog.Logger
}

// NewLedgerBackupJob creates a new LedgerBackupJob
func NewLedgerBackupJob(backups Backuper, log zerolog.Logger) *LedgerBackupJob {
	return &LedgerBackupJob{
		backups: backups,
		timeout: 30 * time.Minute,
		log:     log.With().Str("job", "ledger_backup").Logger(),
	}
}

// Name returns the job name
func (j *LedgerBackupJob) Name() string {
	return "ledger_backup"
}

// Run executes the backup
func (j *LedgerBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("ledger backup failed: %w", err)
	}
	return nil
}
