package testing

import (
	"time"

	"github.com/aristath/strategist/internal/domain"
	"github.com/shopspring/decimal"
)

// FixtureEpoch is the reference time fixtures are laid out from
var FixtureEpoch = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

// NewPortfolioFixture returns a portfolio owned by user-1
func NewPortfolioFixture(uid string) domain.Portfolio {
	return domain.Portfolio{
		UID:       uid,
		UserID:    "user-1",
		Name:      "Main",
		CreatedAt: FixtureEpoch,
	}
}

// NewTransactionFixture builds an EXECUTED transaction placed minute minutes after FixtureEpoch
func NewTransactionFixture(id, portfolioUID string, asset domain.Asset, op domain.OperationType, qty, price string, minute int) domain.Transaction {
	return domain.Transaction{
		ID:           id,
		PortfolioUID: portfolioUID,
		Asset:        asset,
		Operation:    op,
		Status:       domain.StatusExecuted,
		Quantity:     decimal.RequireFromString(qty),
		Price:        decimal.RequireFromString(price),
		Timestamp:    FixtureEpoch.Add(time.Duration(minute) * time.Minute),
	}
}

// NewLedgerFixture returns a small mixed-kind ledger for portfolioUID:
//
//	BTC  BUY 2 @ 100, BUY 1 @ 130, SELL 1 @ 150  -> 2 @ 110, realized 40
//	AAPL BUY 10 @ 50, PENDING BUY 5 @ 40         -> 10 @ 50
//	EUR/USD BUY 1000 @ 1.1, CANCELLED SELL 500   -> 1000 @ 1.1
func NewLedgerFixture(portfolioUID string) []domain.Transaction {
	pendingAAPL := NewTransactionFixture("tx-5", portfolioUID, domain.Stock("AAPL"), domain.OperationBuy, "5", "40", 5)
	pendingAAPL.Status = domain.StatusPending

	cancelledFX := NewTransactionFixture("tx-7", portfolioUID, domain.Forex("EUR/USD"), domain.OperationSell, "500", "1.2", 7)
	cancelledFX.Status = domain.StatusCancelled

	return []domain.Transaction{
		NewTransactionFixture("tx-1", portfolioUID, domain.Crypto("BTC"), domain.OperationBuy, "2", "100", 1),
		NewTransactionFixture("tx-2", portfolioUID, domain.Crypto("BTC"), domain.OperationBuy, "1", "130", 2),
		NewTransactionFixture("tx-3", portfolioUID, domain.Crypto("BTC"), domain.OperationSell, "1", "150", 3),
		NewTransactionFixture("tx-4", portfolioUID, domain.Stock("AAPL"), domain.OperationBuy, "10", "50", 4),
		pendingAAPL,
		NewTransactionFixture("tx-6", portfolioUID, domain.Forex("EUR/USD"), domain.OperationBuy, "1000", "1.1", 6),
		cancelledFX,
	}
}
