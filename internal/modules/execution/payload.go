// Package execution packages portfolio holdings with a strategy script, submits them
// to the execution engine and normalizes the engine's answer.
package execution

import (
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/shopspring/decimal"
)

// Payload is the JSON body sent to the execution engine
type Payload struct {
	Portfolio    PortfolioPayload `json:"portfolio"`
	StrategyCode string           `json:"strategyCode"`
}

// PortfolioPayload is the portfolio section of the payload
type PortfolioPayload struct {
	UID    string         `json:"uid"`
	Assets []AssetPayload `json:"assets"`
}

// AssetPayload is one aggregated holding. Decimals serialize as JSON strings.
type AssetPayload struct {
	Symbol       string          `json:"symbol"`
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"averageCost"`
	RealizedGain decimal.Decimal `json:"realizedGain"`
}

// BuildPayload serializes holdings and the strategy code into the engine request body.
// Assets are ordered by kind, then symbol, so equal inputs produce identical bodies.
func BuildPayload(portfolioUID string, holdings portfolio.Holdings, strategyCode string) Payload {
	sorted := holdings.Sorted()
	assets := make([]AssetPayload, 0, len(sorted))
	for _, h := range sorted {
		assets = append(assets, AssetPayload{
			Symbol:       h.Asset.Symbol,
			Kind:         string(h.Asset.Kind),
			Quantity:     h.Quantity,
			AverageCost:  h.AverageCost,
			RealizedGain: h.RealizedGain,
		})
	}

	return Payload{
		Portfolio: PortfolioPayload{
			UID:    portfolioUID,
			Assets: assets,
		},
		StrategyCode: strategyCode,
	}
}
