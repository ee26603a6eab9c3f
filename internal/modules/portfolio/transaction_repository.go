package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/strategist/internal/database"
	"github.com/aristath/strategist/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrTransactionNotFound is returned when no ledger entry matches an id
var ErrTransactionNotFound = errors.New("transaction not found")

const transactionColumns = `id, portfolio_uid, asset_kind, symbol, operation, status,
	quantity, price, strategy_id, max_buy_price, min_sell_price, occurred_at`

// TransactionRepository handles the append-only transaction ledger in ledger.db.
// Only the status of a PENDING entry may change after insertion.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

// Append validates and inserts a ledger entry.
// A missing id is generated, a missing status defaults to PENDING and a zero timestamp to now.
func (r *TransactionRepository) Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tx, err := prepareForAppend(tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	var exists int
	err = r.ledgerDB.QueryRowContext(ctx,
		`SELECT 1 FROM portfolios WHERE uid = ?`, tx.PortfolioUID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrPortfolioNotFound, tx.PortfolioUID)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to check portfolio %s: %w", tx.PortfolioUID, err)
	}

	_, err = r.ledgerDB.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.PortfolioUID,
		string(tx.Asset.Kind),
		tx.Asset.Symbol,
		string(tx.Operation),
		string(tx.Status),
		tx.Quantity.String(),
		tx.Price.String(),
		nullString(tx.StrategyID),
		nullDecimal(tx.MaxBuyPrice),
		nullDecimal(tx.MinSellPrice),
		tx.Timestamp.UnixNano(),
		time.Now().Unix(),
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	r.log.Debug().
		Str("id", tx.ID).
		Str("portfolio_uid", tx.PortfolioUID).
		Str("asset", tx.Asset.String()).
		Str("operation", string(tx.Operation)).
		Str("status", string(tx.Status)).
		Msg("Transaction appended")

	return tx, nil
}

// FindByPortfolio returns the ledger of p in insertion order
func (r *TransactionRepository) FindByPortfolio(ctx context.Context, p domain.Portfolio) ([]domain.Transaction, error) {
	rows, err := r.ledgerDB.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE portfolio_uid = ? ORDER BY seq`, p.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", p.UID, err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// UpdateStatus moves a PENDING entry to EXECUTED or CANCELLED.
// Terminal entries are rejected with domain.ErrImmutableTransaction.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, to domain.TransactionStatus) (domain.Transaction, error) {
	var updated domain.Transaction

	err := database.WithTransaction(r.ledgerDB, func(sqlTx *sql.Tx) error {
		row := sqlTx.QueryRowContext(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
		tx, err := scanTransaction(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", id, err)
		}

		from := tx.Status
		if err := tx.Transition(to); err != nil {
			return err
		}
		if tx.Status == from {
			updated = tx
			return nil
		}

		res, err := sqlTx.ExecContext(ctx,
			`UPDATE transactions SET status = ? WHERE id = ? AND status = ?`,
			string(tx.Status), id, string(from),
		)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s is no longer %s", domain.ErrImmutableTransaction, id, from)
		}
		updated = tx
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	r.log.Info().Str("id", id).Str("status", string(updated.Status)).Msg("Transaction status updated")
	return updated, nil
}

func prepareForAppend(tx domain.Transaction) (domain.Transaction, error) {
	if tx.PortfolioUID == "" {
		return domain.Transaction{}, fmt.Errorf("portfolio uid is required")
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = domain.StatusPending
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	tx.Timestamp = tx.Timestamp.UTC()
	tx.Asset = domain.NewAsset(tx.Asset.Kind, tx.Asset.Symbol)

	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}
	return tx, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx                 domain.Transaction
		kind, symbol       string
		operation, status  string
		quantity, price    string
		strategyID         sql.NullString
		maxBuy, minSell    sql.NullString
		occurredAtUnixNano int64
	)

	if err := row.Scan(
		&tx.ID, &tx.PortfolioUID, &kind, &symbol, &operation, &status,
		&quantity, &price, &strategyID, &maxBuy, &minSell, &occurredAtUnixNano,
	); err != nil {
		return domain.Transaction{}, err
	}

	var err error
	tx.Asset = domain.Asset{Kind: domain.AssetKind(kind), Symbol: symbol}
	tx.Operation = domain.OperationType(operation)
	tx.Status = domain.TransactionStatus(status)
	tx.Timestamp = time.Unix(0, occurredAtUnixNano).UTC()

	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad quantity %q: %w", tx.ID, quantity, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad price %q: %w", tx.ID, price, err)
	}
	if strategyID.Valid {
		s := strategyID.String
		tx.StrategyID = &s
	}
	if tx.MaxBuyPrice, err = parseNullDecimal(maxBuy); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad max buy price: %w", tx.ID, err)
	}
	if tx.MinSellPrice, err = parseNullDecimal(minSell); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad min sell price: %w", tx.ID, err)
	}
	return tx, nil
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
