package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/strategist/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// portfolioRecord is the gorm row model for a portfolio
type portfolioRecord struct {
	UID       string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;not null"`
	Name      string `gorm:"not null;default:''"`
	CreatedAt time.Time
}

func (portfolioRecord) TableName() string { return "portfolios" }

// transactionRecord is the gorm row model for a ledger entry.
// Decimals are kept as text for exact round-trips.
type transactionRecord struct {
	Seq          uint64 `gorm:"primaryKey;autoIncrement"`
	ID           string `gorm:"uniqueIndex;size:64;not null"`
	PortfolioUID string `gorm:"index:idx_tx_portfolio;size:64;not null"`
	AssetKind    string `gorm:"size:16;not null"`
	Symbol       string `gorm:"size:32;not null"`
	Operation    string `gorm:"size:8;not null"`
	Status       string `gorm:"size:16;not null"`
	Quantity     string `gorm:"not null"`
	Price        string `gorm:"not null"`
	StrategyID   *string
	MaxBuyPrice  *string
	MinSellPrice *string
	OccurredAt   time.Time `gorm:"not null"`
	CreatedAt    time.Time
}

func (transactionRecord) TableName() string { return "transactions" }

// GormStore is the PostgreSQL ledger backend, selected with STORE_DRIVER=postgres
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewGormStore creates a gorm-backed store
func NewGormStore(db *gorm.DB, log zerolog.Logger) *GormStore {
	return &GormStore{
		db:  db,
		log: log.With().Str("repo", "gorm_ledger").Logger(),
	}
}

// Migrate creates or updates the ledger tables
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&portfolioRecord{}, &transactionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}

// Create inserts a new portfolio with a generated uid
func (s *GormStore) Create(ctx context.Context, userID, name string) (domain.Portfolio, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Portfolio{}, fmt.Errorf("user id is required")
	}

	rec := portfolioRecord{
		UID:       uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	s.log.Info().Str("uid", rec.UID).Str("user_id", rec.UserID).Msg("Portfolio created")
	return rec.toDomain(), nil
}

// FindByUID returns the portfolio or domain.ErrPortfolioNotFound
func (s *GormStore) FindByUID(ctx context.Context, uid string) (domain.Portfolio, error) {
	var rec portfolioRecord
	err := s.db.WithContext(ctx).Where("uid = ?", uid).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Portfolio{}, fmt.Errorf("%w: %s", domain.ErrPortfolioNotFound, uid)
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to query portfolio %s: %w", uid, err)
	}
	return rec.toDomain(), nil
}

// List returns the portfolios of a user, oldest first. An empty userID lists all portfolios.
func (s *GormStore) List(ctx context.Context, userID string) ([]domain.Portfolio, error) {
	q := s.db.WithContext(ctx).Order("created_at, uid")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var recs []portfolioRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}

	out := make([]domain.Portfolio, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// Append validates and inserts a ledger entry
func (s *GormStore) Append(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tx, err := prepareForAppend(tx)
	if err != nil {
		return domain.Transaction{}, err
	}

	if _, err := s.FindByUID(ctx, tx.PortfolioUID); err != nil {
		return domain.Transaction{}, err
	}

	rec := newTransactionRecord(tx)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return tx, nil
}

// FindByPortfolio returns the ledger of p in insertion order
func (s *GormStore) FindByPortfolio(ctx context.Context, p domain.Portfolio) ([]domain.Transaction, error) {
	var recs []transactionRecord
	err := s.db.WithContext(ctx).
		Where("portfolio_uid = ?", p.UID).
		Order("seq").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", p.UID, err)
	}

	out := make([]domain.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// UpdateStatus moves a PENDING entry to EXECUTED or CANCELLED
func (s *GormStore) UpdateStatus(ctx context.Context, id string, to domain.TransactionStatus) (domain.Transaction, error) {
	var updated domain.Transaction

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var rec transactionRecord
		err := db.Where("id = ?", id).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", id, err)
		}

		tx, err := rec.toDomain()
		if err != nil {
			return err
		}
		from := tx.Status
		if err := tx.Transition(to); err != nil {
			return err
		}
		if tx.Status != from {
			res := db.Model(&transactionRecord{}).
				Where("id = ? AND status = ?", id, string(from)).
				Update("status", string(tx.Status))
			if res.Error != nil {
				return fmt.Errorf("failed to update transaction %s: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s is no longer %s", domain.ErrImmutableTransaction, id, from)
			}
		}
		updated = tx
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

func (r portfolioRecord) toDomain() domain.Portfolio {
	return domain.Portfolio{
		UID:       r.UID,
		UserID:    r.UserID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func newTransactionRecord(tx domain.Transaction) transactionRecord {
	rec := transactionRecord{
		ID:           tx.ID,
		PortfolioUID: tx.PortfolioUID,
		AssetKind:    string(tx.Asset.Kind),
		Symbol:       tx.Asset.Symbol,
		Operation:    string(tx.Operation),
		Status:       string(tx.Status),
		Quantity:     tx.Quantity.String(),
		Price:        tx.Price.String(),
		StrategyID:   tx.StrategyID,
		OccurredAt:   tx.Timestamp,
	}
	if tx.MaxBuyPrice != nil {
		v := tx.MaxBuyPrice.String()
		rec.MaxBuyPrice = &v
	}
	if tx.MinSellPrice != nil {
		v := tx.MinSellPrice.String()
		rec.MinSellPrice = &v
	}
	return rec
}

func (r transactionRecord) toDomain() (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:           r.ID,
		PortfolioUID: r.PortfolioUID,
		Asset:        domain.Asset{Kind: domain.AssetKind(r.AssetKind), Symbol: r.Symbol},
		Operation:    domain.OperationType(r.Operation),
		Status:       domain.TransactionStatus(r.Status),
		StrategyID:   r.StrategyID,
		Timestamp:    r.OccurredAt.UTC(),
	}

	var err error
	if tx.Quantity, err = decimal.NewFromString(r.Quantity); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad quantity %q: %w", r.ID, r.Quantity, err)
	}
	if tx.Price, err = decimal.NewFromString(r.Price); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: bad price %q: %w", r.ID, r.Price, err)
	}
	if r.MaxBuyPrice != nil {
		d, err := decimal.NewFromString(*r.MaxBuyPrice)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("transaction %s: bad max buy price: %w", r.ID, err)
		}
		tx.MaxBuyPrice = &d
	}
	if r.MinSellPrice != nil {
		d, err := decimal.NewFromString(*r.MinSellPrice)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("transaction %s: bad min sell price: %w", r.ID, err)
		}
		tx.MinSellPrice = &d
	}
	return tx, nil
}
