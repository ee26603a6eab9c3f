package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	testingpkg "github.com/aristath/strategist/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_AddJobRejectsDuplicateName(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "probe"}))
	assert.Error(t, s.AddJob("@every 1h", &countingJob{name: "probe"}))
}

func TestScheduler_RunByNameRecordsOutcome(t *testing.T) {
	s := New(zerolog.Nop())
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	ok := &countingJob{name: "ok"}
	require.NoError(t, s.AddJob("@every 1h", failing))
	require.NoError(t, s.AddJob("@every 1h", ok))

	assert.EqualError(t, s.RunByName("failing"), "boom")
	require.NoError(t, s.RunByName("ok"))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "failing", jobs[0].Name)
	assert.Equal(t, "boom", jobs[0].LastError)
	assert.Equal(t, 1, jobs[0].Runs)
	require.NotNil(t, jobs[0].LastRun)
	assert.Equal(t, "ok", jobs[1].Name)
	assert.Empty(t, jobs[1].LastError)
	assert.Equal(t, int32(1), ok.runs.Load())
}

func TestScheduler_RunByNameUnknown(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.RunByName("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowUnregisteredJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "adhoc"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].NextRun)
}

type fakeProbe struct {
	err      error
	deadline bool
}

func (p *fakeProbe) Check(ctx context.Context) error {
	_, p.deadline = ctx.Deadline()
	return p.err
}

func TestEngineHealthJob(t *testing.T) {
	probe := &fakeProbe{}
	job := NewEngineHealthJob(probe, 0, zerolog.Nop())

	assert.Equal(t, "engine_health", job.Name())
	require.NoError(t, job.Run())
	assert.True(t, probe.deadline)

	probe.err = errors.New("connection refused")
	assert.EqualError(t, job.Run(), "connection refused")
}

func TestCheckLedgerJob(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	defer cleanup()

	job := NewCheckLedgerJob(db, zerolog.Nop())
	assert.Equal(t, "check_ledger", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckLedgerJob_NoDatabase(t *testing.T) {
	job := NewCheckLedgerJob(nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}

type fakeBackuper struct {
	calls int
	err   error
}

func (b *fakeBackuper) CreateAndUploadBackup(ctx context.Context) error {
	b.calls++
	return b.err
}

func TestLedgerBackupJob(t *testing.T) {
	backups := &fakeBackuper{}
	job := NewLedgerBackupJob(backups, zerolog.Nop())

	assert.Equal(t, "ledger_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, backups.calls)

	backups.err = errors.New("bucket missing")
	err := job.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, backups.err)
}
