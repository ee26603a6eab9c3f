package testing

import (
	"context"
	"sync"

	"github.com/aristath/strategist/internal/domain"
)

// MockPortfolioStore is an in-memory portfolio store for tests
type MockPortfolioStore struct {
	mu         sync.RWMutex
	portfolios map[string]domain.Portfolio
	err        error
	calls      int
}

// NewMockPortfolioStore creates a store seeded with the given portfolios
func NewMockPortfolioStore(portfolios ...domain.Portfolio) *MockPortfolioStore {
	m := &MockPortfolioStore{portfolios: make(map[string]domain.Portfolio)}
	for _, p := range portfolios {
		m.portfolios[p.UID] = p
	}
	return m
}

// SetError makes every lookup fail with err
func (m *MockPortfolioStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many lookups were made
func (m *MockPortfolioStore) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// FindByUID returns the portfolio or domain.ErrPortfolioNotFound
func (m *MockPortfolioStore) FindByUID(_ context.Context, uid string) (domain.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.Portfolio{}, m.err
	}
	p, ok := m.portfolios[uid]
	if !ok {
		return domain.Portfolio{}, domain.ErrPortfolioNotFound
	}
	return p, nil
}

// MockTransactionStore is an in-memory transaction history store for tests
type MockTransactionStore struct {
	mu     sync.RWMutex
	ledger map[string][]domain.Transaction
	err    error
}

// NewMockTransactionStore creates an empty store
func NewMockTransactionStore() *MockTransactionStore {
	return &MockTransactionStore{ledger: make(map[string][]domain.Transaction)}
}

// SetLedger replaces the ledger of a portfolio
func (m *MockTransactionStore) SetLedger(portfolioUID string, txs []domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[portfolioUID] = txs
}

// SetError makes every lookup fail with err
func (m *MockTransactionStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FindByPortfolio returns a copy of the portfolio's ledger in insertion order
func (m *MockTransactionStore) FindByPortfolio(_ context.Context, p domain.Portfolio) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	txs := m.ledger[p.UID]
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	return out, nil
}
