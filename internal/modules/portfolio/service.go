package portfolio

import (
	"context"
	"fmt"

	"github.com/aristath/strategist/internal/domain"
	"github.com/rs/zerolog"
)

// Service answers holdings queries by replaying a portfolio's ledger.
// It performs no writes.
type Service struct {
	portfolios PortfolioStore
	history    TransactionHistoryStore
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(portfolios PortfolioStore, history TransactionHistoryStore, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		history:    history,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPortfolio resolves a portfolio by uid
func (s *Service) GetPortfolio(ctx context.Context, uid string) (domain.Portfolio, error) {
	return s.portfolios.FindByUID(ctx, uid)
}

// GetHoldings resolves the portfolio and aggregates its ledger
func (s *Service) GetHoldings(ctx context.Context, uid string) (domain.Portfolio, Holdings, error) {
	p, err := s.portfolios.FindByUID(ctx, uid)
	if err != nil {
		return domain.Portfolio{}, nil, err
	}

	txs, err := s.history.FindByPortfolio(ctx, p)
	if err != nil {
		return domain.Portfolio{}, nil, fmt.Errorf("failed to load ledger of %s: %w", uid, err)
	}

	holdings, err := Aggregate(txs)
	if err != nil {
		s.log.Warn().Err(err).Str("portfolio_uid", uid).Msg("Ledger does not aggregate")
		return domain.Portfolio{}, nil, err
	}

	s.log.Debug().
		Str("portfolio_uid", uid).
		Int("transactions", len(txs)).
		Int("holdings", len(holdings)).
		Msg("Holdings aggregated")

	return p, holdings, nil
}
