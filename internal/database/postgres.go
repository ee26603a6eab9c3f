package database

import (
	"fmt"
	"net/url"
	"sort"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// PostgresOption defines connection options for the PostgreSQL ledger backend.
// ConnString wins over the individual fields when set.
type PostgresOption struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Verbose    bool // Log every SQL statement
}

// Postgres wraps a gorm connection pool
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens a PostgreSQL connection pool through gorm
func NewPostgres(opt PostgresOption) (*Postgres, error) {
	dsn, err := opt.DSN()
	if err != nil {
		return nil, err
	}

	level := gormlogger.Silent
	if opt.Verbose {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return &Postgres{db: db}, nil
}

// Gorm returns the underlying gorm.DB
func (p *Postgres) Gorm() *gorm.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// Close closes the underlying connection pool
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DSN builds the postgres:// connection URL
func (opt PostgresOption) DSN() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid postgres port %d", port)
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	keys := make([]string, 0, len(opt.Params))
	for key := range opt.Params {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		query.Set(key, opt.Params[key])
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
