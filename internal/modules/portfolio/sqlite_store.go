package portfolio

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// SQLiteStore combines the ledger.db repositories into a Store
type SQLiteStore struct {
	*PortfolioRepository
	*TransactionRepository
}

// NewSQLiteStore creates a Store backed by ledger.db
func NewSQLiteStore(ledgerDB *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		PortfolioRepository:   NewPortfolioRepository(ledgerDB, log),
		TransactionRepository: NewTransactionRepository(ledgerDB, log),
	}
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*GormStore)(nil)
)
