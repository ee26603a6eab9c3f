package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.Store)
	assert.NotNil(t, container.EngineClient)
	assert.Equal(t, "http://localhost:9000", container.EngineClient.BaseURL())
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.Dispatcher)
	assert.NotNil(t, container.StatusMonitor)
	assert.Nil(t, container.BackupService)
	require.NotNil(t, container.Scheduler)

	var names []string
	for _, job := range container.Scheduler.Jobs() {
		names = append(names, job.Name)
	}
	assert.Equal(t, []string{"check_ledger", "engine_health"}, names)
}

func TestWire_WithBackups(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Enabled = true
	cfg.Backup.Bucket = "backups"
	cfg.Backup.Endpoint = "http://127.0.0.1:9999"
	cfg.Backup.AccessKeyID = "key"
	cfg.Backup.SecretAccessKey = "secret"

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.BackupService)

	var names []string
	for _, job := range container.Scheduler.Jobs() {
		names = append(names, job.Name)
	}
	assert.Contains(t, names, "ledger_backup")
}

func TestWire_InvalidHealthSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.HealthSchedule = "whenever"

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitializeServices_RequiresStore(t *testing.T) {
	err := InitializeServices(context.Background(), &Container{}, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
