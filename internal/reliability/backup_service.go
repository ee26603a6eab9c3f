// Package reliability provides ledger backups to S3-compatible object storage.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/strategist/internal/version"
	"github.com/rs/zerolog"
)

const (
	archivePrefix   = "strategist-backup-"
	archiveSuffix   = ".tar.gz"
	timestampLayout = "2006-01-02-150405"
	metadataFile    = "backup-metadata.json"
	ledgerFile      = "ledger.db"

	// Kept regardless of age
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database to a new file
type Snapshotter interface {
	SnapshotTo(ctx context.Context, dest string) error
}

// BackupService snapshots the ledger and uploads it as a tar.gz archive
type BackupService struct {
	store         ObjectStore
	ledger        Snapshotter
	dataDir       string
	prefix        string
	retentionDays int
	now           func() time.Time
	log           zerolog.Logger
}

// BackupMetadata is written next to the snapshot inside every archive
type BackupMetadata struct {
	Timestamp         time.Time `json:"timestamp"`
	Version           string    `json:"version"`
	StrategistVersion string    `json:"strategist_version"`
	Filename          string    `json:"filename"`
	SizeBytes         int64     `json:"size_bytes"`
	Checksum          string    `json:"checksum"`
}

// BackupInfo represents a backup stored in the bucket
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewBackupService creates a new backup service
func NewBackupService(
	store ObjectStore,
	ledger Snapshotter,
	dataDir string,
	prefix string,
	retentionDays int,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		store:         store,
		ledger:        ledger,
		dataDir:       dataDir,
		prefix:        prefix,
		retentionDays: retentionDays,
		now:           time.Now,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots the ledger, archives it and uploads the archive.
// Old backups are rotated afterwards; rotation failures are logged only.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting ledger backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, ledgerFile)
	if err := s.ledger.SnapshotTo(ctx, snapshotPath); err != nil {
		return fmt.Errorf("failed to snapshot ledger: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := calculateChecksum(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}

	now := s.now().UTC()
	metadata := BackupMetadata{
		Timestamp:         now,
		Version:           "1.0.0",
		StrategistVersion: version.Version,
		Filename:          ledgerFile,
		SizeBytes:         info.Size(),
		Checksum:          checksum,
	}
	if err := writeMetadata(filepath.Join(stagingDir, metadataFile), metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := archivePrefix + now.Format(timestampLayout) + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, stagingDir, []string{ledgerFile, metadataFile}); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	key := s.prefix + archiveName
	if err := s.store.Upload(ctx, key, archiveFile); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration", time.Since(startTime)).
		Str("key", key).
		Int64("ledger_bytes", info.Size()).
		Msg("Ledger backup completed")

	if s.retentionDays > 0 {
		if err := s.RotateOldBackups(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Backup rotation failed")
		}
	}

	return nil
}

// ListBackups lists stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse(timestampLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}

		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period.
// The newest minBackupsToKeep are always kept.
func (s *BackupService) RotateOldBackups(ctx context.Context) error {
	if s.retentionDays <= 0 {
		return nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().Int("deleted", deleted).Int("retention_days", s.retentionDays).Msg("Backup rotation completed")
	return nil
}

func calculateChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, names []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, name := range names {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, path, nameInArchive string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
