package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the side of a ledger entry
type OperationType string

const (
	OperationBuy  OperationType = "BUY"
	OperationSell OperationType = "SELL"
)

// ParseOperationType parses BUY/SELL case-insensitively
func ParseOperationType(s string) (OperationType, error) {
	op := OperationType(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case OperationBuy, OperationSell:
		return op, nil
	}
	return "", fmt.Errorf("unsupported operation %q (use buy|sell)", s)
}

// TransactionStatus is the lifecycle state of a ledger entry
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusExecuted  TransactionStatus = "EXECUTED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// ParseTransactionStatus parses a status case-insensitively
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusPending, StatusExecuted, StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unsupported status %q (use pending|executed|cancelled)", s)
}

// Terminal reports whether no further transition is allowed
func (s TransactionStatus) Terminal() bool {
	return s == StatusExecuted || s == StatusCancelled
}

// ErrImmutableTransaction is returned when an EXECUTED or CANCELLED transaction is asked to change
var ErrImmutableTransaction = errors.New("transaction is immutable")

// Transaction is a single ledger entry of a portfolio.
// Quantity and Price are never negative; the operation carries the sign.
type Transaction struct {
	Timestamp    time.Time         `json:"timestamp"`
	ID           string            `json:"id"`
	PortfolioUID string            `json:"portfolio_uid"`
	Asset        Asset             `json:"asset"`
	Operation    OperationType     `json:"operation"`
	Status       TransactionStatus `json:"status"`
	StrategyID   *string           `json:"strategy_id,omitempty"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Price        decimal.Decimal   `json:"price"`
	MaxBuyPrice  *decimal.Decimal  `json:"max_buy_price,omitempty"`  // limit threshold for pending buys
	MinSellPrice *decimal.Decimal  `json:"min_sell_price,omitempty"` // limit threshold for pending sells
}

// Ledger timestamps are stored as Unix nanoseconds
var (
	MinTimestamp = time.Unix(0, math.MinInt64).UTC()
	MaxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// Validate checks the rules every stored transaction must satisfy
func (t Transaction) Validate() error {
	if err := t.Asset.Validate(); err != nil {
		return err
	}
	if t.Quantity.IsNegative() {
		return fmt.Errorf("quantity must not be negative, got %s", t.Quantity)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("price must not be negative, got %s", t.Price)
	}
	if t.MaxBuyPrice != nil && t.MaxBuyPrice.IsNegative() {
		return fmt.Errorf("max buy price must not be negative, got %s", t.MaxBuyPrice)
	}
	if t.MinSellPrice != nil && t.MinSellPrice.IsNegative() {
		return fmt.Errorf("min sell price must not be negative, got %s", t.MinSellPrice)
	}
	if _, err := ParseOperationType(string(t.Operation)); err != nil {
		return err
	}
	if _, err := ParseTransactionStatus(string(t.Status)); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if t.Timestamp.Before(MinTimestamp) || t.Timestamp.After(MaxTimestamp) {
		return fmt.Errorf("timestamp %s outside %d-%d", t.Timestamp.Format(time.RFC3339), MinTimestamp.Year(), MaxTimestamp.Year())
	}
	return nil
}

// Transition moves a PENDING transaction to the given status.
// EXECUTED and CANCELLED transactions never change.
func (t *Transaction) Transition(to TransactionStatus) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrImmutableTransaction, t.ID, t.Status)
	}
	switch to {
	case StatusExecuted, StatusCancelled:
		t.Status = to
		return nil
	case StatusPending:
		return nil
	}
	return fmt.Errorf("unsupported status %q", to)
}

// Executed reports whether the transaction contributes to holdings
func (t Transaction) Executed() bool {
	return t.Status == StatusExecuted
}
