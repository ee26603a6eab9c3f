// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for ledger.db and backup staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Engine EngineConfig
	Store  StoreConfig
	Backup BackupConfig
}

// EngineConfig configures the execution engine client
type EngineConfig struct {
	URL            string
	Timeout        time.Duration
	DetailPath     string // JSONPath of the error message in non-2xx bodies
	HealthSchedule string // cron schedule for the engine health probe
}

// StoreConfig selects the ledger backend
type StoreConfig struct {
	Driver      string // sqlite | postgres
	PostgresDSN string
}

// BackupConfig configures scheduled ledger backups to S3-compatible storage
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	Bucket          string
	Endpoint        string // empty for AWS, set for R2/MinIO
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int // 0 keeps every backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STRATEGIST_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Engine: EngineConfig{
			URL:            strings.TrimRight(getEnv("ENGINE_URL", "http://localhost:9000"), "/"),
			Timeout:        getEnvAsDuration("ENGINE_TIMEOUT", 30*time.Second),
			DetailPath:     getEnv("ENGINE_DETAIL_PATH", "$.detail"),
			HealthSchedule: getEnv("ENGINE_HEALTH_SCHEDULE", "@every 1m"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite)),
			PostgresDSN: getEnv("POSTGRES_DSN", ""),
		},
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // 03:00 daily
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "ledger/"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Engine.URL == "" {
		return fmt.Errorf("ENGINE_URL is required")
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive, got %s", c.Engine.Timeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT out of range: %d", c.Port)
	}

	switch c.Store.Driver {
	case StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (use sqlite|postgres)", c.Store.Driver)
	}

	if c.Backup.Enabled {
		if c.Store.Driver != StoreDriverSQLite {
			return fmt.Errorf("BACKUP_ENABLED requires STORE_DRIVER=sqlite")
		}
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET is required when BACKUP_ENABLED=true")
		}
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.Backup.RetentionDays)
		}
	}

	return nil
}

// LedgerPath returns the path of the SQLite ledger
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
