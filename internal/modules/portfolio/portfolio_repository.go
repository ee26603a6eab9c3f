package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/strategist/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PortfolioRepository handles portfolio rows in ledger.db
type PortfolioRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(ledgerDB *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio with a generated uid
func (r *PortfolioRepository) Create(ctx context.Context, userID, name string) (domain.Portfolio, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Portfolio{}, fmt.Errorf("user id is required")
	}

	p := domain.Portfolio{
		UID:       uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err := r.ledgerDB.ExecContext(ctx,
		`INSERT INTO portfolios (uid, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.UID, p.UserID, p.Name, p.CreatedAt.Unix(),
	)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	r.log.Info().Str("uid", p.UID).Str("user_id", p.UserID).Msg("Portfolio created")
	return p, nil
}

// FindByUID returns the portfolio or domain.ErrPortfolioNotFound
func (r *PortfolioRepository) FindByUID(ctx context.Context, uid string) (domain.Portfolio, error) {
	row := r.ledgerDB.QueryRowContext(ctx,
		`SELECT uid, user_id, name, created_at FROM portfolios WHERE uid = ?`, uid)

	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Portfolio{}, fmt.Errorf("%w: %s", domain.ErrPortfolioNotFound, uid)
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to query portfolio %s: %w", uid, err)
	}
	return p, nil
}

// List returns the portfolios of a user, oldest first. An empty userID lists all portfolios.
func (r *PortfolioRepository) List(ctx context.Context, userID string) ([]domain.Portfolio, error) {
	query := `SELECT uid, user_id, name, created_at FROM portfolios`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, uid`

	rows, err := r.ledgerDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (domain.Portfolio, error) {
	var p domain.Portfolio
	var createdAt int64
	if err := row.Scan(&p.UID, &p.UserID, &p.Name, &createdAt); err != nil {
		return domain.Portfolio{}, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}
