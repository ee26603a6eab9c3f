// Package portfolio provides portfolio ledger storage and holdings aggregation.
package portfolio

import (
	"context"

	"github.com/aristath/strategist/internal/domain"
)

// PortfolioStore resolves portfolios by uid.
// Implementations return domain.ErrPortfolioNotFound (possibly wrapped) for unknown uids.
type PortfolioStore interface {
	FindByUID(ctx context.Context, uid string) (domain.Portfolio, error)
}

// TransactionHistoryStore returns a portfolio's full ledger in insertion order
type TransactionHistoryStore interface {
	FindByPortfolio(ctx context.Context, p domain.Portfolio) ([]domain.Transaction, error)
}

// PortfolioWriter persists new portfolios
type PortfolioWriter interface {
	Create(ctx context.Context, userID, name string) (domain.Portfolio, error)
	List(ctx context.Context, userID string) ([]domain.Portfolio, error)
}

// LedgerWriter appends to the ledger and moves PENDING entries to a terminal status
type LedgerWriter interface {
	Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	UpdateStatus(ctx context.Context, id string, to domain.TransactionStatus) (domain.Transaction, error)
}

// Store is the full ledger backend, implemented by the SQLite repositories and GormStore
type Store interface {
	PortfolioStore
	TransactionHistoryStore
	PortfolioWriter
	LedgerWriter
}
