package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aristath/strategist/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrInsufficientHoldings is returned when a SELL exceeds the quantity held at that point of the ledger
var ErrInsufficientHoldings = errors.New("insufficient holdings")

// InsufficientHoldingsError describes the SELL that would have driven a holding negative
type InsufficientHoldingsError struct {
	Asset         domain.AssetKey
	TransactionID string
	Held          decimal.Decimal
	Requested     decimal.Decimal
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings for %s: sell of %s exceeds held %s (transaction %s)",
		e.Asset, e.Requested, e.Held, e.TransactionID)
}

func (e *InsufficientHoldingsError) Unwrap() error { return ErrInsufficientHoldings }

// Holdings maps each asset to its aggregated position
type Holdings map[domain.AssetKey]domain.AggregatedAsset

// Sorted returns the holdings ordered by kind, then symbol
func (h Holdings) Sorted() []domain.AggregatedAsset {
	keys := make([]domain.AssetKey, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]domain.AggregatedAsset, 0, len(keys))
	for _, k := range keys {
		out = append(out, h[k])
	}
	return out
}

// Aggregate reduces a ledger to its current holdings.
//
// Transactions are applied in timestamp order (stable: equal timestamps keep
// their ledger order). Only EXECUTED entries count. A BUY blends its price into
// the weighted-average cost; a SELL keeps the average and books
// qty * (price - avgCost) as realized gain. Selling more than is held fails with
// an *InsufficientHoldingsError and no holdings are returned. Positions that net
// to zero are left out of the result.
//
// The input slice is not modified.
func Aggregate(txs []domain.Transaction) (Holdings, error) {
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	positions := make(map[domain.AssetKey]*domain.AggregatedAsset)
	for _, tx := range ordered {
		if !tx.Executed() {
			continue
		}

		key := tx.Asset.Key()
		pos := positions[key]
		if pos == nil {
			pos = &domain.AggregatedAsset{
				Asset:        domain.Asset{Kind: key.Kind, Symbol: key.Symbol},
				Quantity:     decimal.Zero,
				AverageCost:  decimal.Zero,
				RealizedGain: decimal.Zero,
			}
			positions[key] = pos
		}

		switch tx.Operation {
		case domain.OperationBuy:
			applyBuy(pos, tx)
		case domain.OperationSell:
			if tx.Quantity.GreaterThan(pos.Quantity) {
				return nil, &InsufficientHoldingsError{
					Asset:         key,
					TransactionID: tx.ID,
					Held:          pos.Quantity,
					Requested:     tx.Quantity,
				}
			}
			applySell(pos, tx)
		default:
			return nil, fmt.Errorf("transaction %s: unsupported operation %q", tx.ID, tx.Operation)
		}
	}

	holdings := make(Holdings, len(positions))
	for key, pos := range positions {
		if pos.Quantity.IsZero() {
			continue
		}
		holdings[key] = *pos
	}
	return holdings, nil
}

func applyBuy(pos *domain.AggregatedAsset, tx domain.Transaction) {
	newQty := pos.Quantity.Add(tx.Quantity)
	if pos.Quantity.IsZero() {
		pos.AverageCost = tx.Price
	} else {
		cost := pos.Quantity.Mul(pos.AverageCost).Add(tx.Quantity.Mul(tx.Price))
		pos.AverageCost = cost.Div(newQty)
	}
	pos.Quantity = newQty
}

func applySell(pos *domain.AggregatedAsset, tx domain.Transaction) {
	gain := tx.Quantity.Mul(tx.Price.Sub(pos.AverageCost))
	pos.RealizedGain = pos.RealizedGain.Add(gain)
	pos.Quantity = pos.Quantity.Sub(tx.Quantity)
}
