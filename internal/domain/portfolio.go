package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPortfolioNotFound is returned by portfolio stores when no portfolio matches the uid
var ErrPortfolioNotFound = errors.New("portfolio not found")

// Portfolio is an owned collection of ledger entries.
// The ledger itself lives in the transaction history store.
type Portfolio struct {
	CreatedAt time.Time `json:"created_at"`
	UID       string    `json:"uid"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
}

// AggregatedAsset is the derived holding of one asset, recomputed from the
// ledger on demand and never persisted
type AggregatedAsset struct {
	Asset        Asset           `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	RealizedGain decimal.Decimal `json:"realized_gain"`
}

// CostBasis returns quantity * average cost
func (a AggregatedAsset) CostBasis() decimal.Decimal {
	return a.Quantity.Mul(a.AverageCost)
}
