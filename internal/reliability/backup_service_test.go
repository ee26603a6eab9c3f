package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	testingpkg "github.com/aristath/strategist/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUploadBackup(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	defer cleanup()

	_, err := db.Conn().Exec(`INSERT INTO portfolios (uid, user_id, name, created_at) VALUES ('p-1', 'user-1', 'Main', 0)`)
	require.NoError(t, err)

	store := newMemoryStore()
	svc := NewBackupService(store, db, t.TempDir(), "ledger/", 0, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	require.NoError(t, svc.CreateAndUploadBackup(context.Background()))

	data, ok := store.objects["ledger/strategist-backup-2024-05-06-070809.tar.gz"]
	require.True(t, ok, "archive uploaded under prefix")

	files := readArchive(t, data)
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files["backup-metadata.json"], &metadata))
	assert.Equal(t, "ledger.db", metadata.Filename)
	assert.Equal(t, int64(len(files["ledger.db"])), metadata.SizeBytes)
	assert.True(t, strings.HasPrefix(metadata.Checksum, "sha256:"))
	assert.True(t, bytes.HasPrefix(files["ledger.db"], []byte("SQLite format 3")))
}

func TestCreateAndUploadBackup_LogsDuration(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	defer cleanup()

	var logs bytes.Buffer
	svc := NewBackupService(newMemoryStore(), db, t.TempDir(), "", 0, zerolog.New(&logs))
	require.NoError(t, svc.CreateAndUploadBackup(context.Background()))

	var completed map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "Ledger backup completed" {
			completed = entry
		}
	}
	require.NotNil(t, completed)
	assert.Contains(t, completed, "duration")
	assert.NotContains(t, completed, "duration_ms")
}

func TestCreateAndUploadBackup_UploadFailure(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	defer cleanup()

	store := newMemoryStore()
	store.uploadErr = errors.New("access denied")
	svc := NewBackupService(store, db, t.TempDir(), "", 0, zerolog.Nop())

	err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.uploadErr)
}

type failingSnapshotter struct{}

func (failingSnapshotter) SnapshotTo(ctx context.Context, dest string) error {
	return errors.New("database is locked")
}

func TestCreateAndUploadBackup_SnapshotFailure(t *testing.T) {
	store := newMemoryStore()
	svc := NewBackupService(store, failingSnapshotter{}, t.TempDir(), "", 0, zerolog.Nop())

	err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Empty(t, store.objects)
}

func TestListBackups_NewestFirstAndSkipsForeignKeys(t *testing.T) {
	store := newMemoryStore()
	store.objects["ledger/strategist-backup-2024-01-01-000000.tar.gz"] = []byte("a")
	store.objects["ledger/strategist-backup-2024-03-01-000000.tar.gz"] = []byte("bb")
	store.objects["ledger/strategist-backup-garbage.tar.gz"] = []byte("c")
	store.objects["ledger/notes.txt"] = []byte("d")

	svc := NewBackupService(store, failingSnapshotter{}, t.TempDir(), "ledger/", 0, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "ledger/strategist-backup-2024-03-01-000000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, int64(24), backups[0].AgeHours)
}

func TestRotateOldBackups_KeepsMinimum(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		store.objects["strategist-backup-2024-01-"+day+"-000000.tar.gz"] = []byte("x")
	}

	svc := NewBackupService(store, failingSnapshotter{}, t.TempDir(), "", 7, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.RotateOldBackups(context.Background()))

	assert.ElementsMatch(t, []string{
		"strategist-backup-2024-01-02-000000.tar.gz",
		"strategist-backup-2024-01-01-000000.tar.gz",
	}, store.deleted)
	assert.Len(t, store.objects, minBackupsToKeep)
}

func TestRotateOldBackups_DisabledWithZeroRetention(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		store.objects["strategist-backup-2024-01-"+day+"-000000.tar.gz"] = []byte("x")
	}

	svc := NewBackupService(store, failingSnapshotter{}, t.TempDir(), "", 0, zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background()))
	assert.Empty(t, store.deleted)
}
