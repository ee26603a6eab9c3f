// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// AssetKind represents the class of a tradable instrument
type AssetKind string

const (
	// AssetKindCrypto represents crypto currencies, keyed by coin symbol (BTC, ETH)
	AssetKindCrypto AssetKind = "CRYPTO"
	// AssetKindStock represents listed equities, keyed by ticker (AAPL, BHP.AX)
	AssetKindStock AssetKind = "STOCK"
	// AssetKindForex represents currency pairs, keyed by pair (EUR/USD)
	AssetKindForex AssetKind = "FOREX"
)

// AllAssetKinds lists every supported asset kind in canonical order
var AllAssetKinds = []AssetKind{AssetKindCrypto, AssetKindStock, AssetKindForex}

var (
	cryptoSymbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,15}$`)
	stockSymbolPattern  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)
	forexSymbolPattern  = regexp.MustCompile(`^[A-Z]{3}/[A-Z]{3}$`)
)

// ParseAssetKind parses a kind name case-insensitively
func ParseAssetKind(s string) (AssetKind, error) {
	kind := AssetKind(strings.ToUpper(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", fmt.Errorf("unsupported asset kind %q (use crypto|stock|forex)", s)
	}
	return kind, nil
}

// Valid reports whether k is one of the supported kinds
func (k AssetKind) Valid() bool {
	switch k {
	case AssetKindCrypto, AssetKindStock, AssetKindForex:
		return true
	}
	return false
}

// order is the position of the kind in AllAssetKinds, used for deterministic sorting
func (k AssetKind) order() int {
	for i, kind := range AllAssetKinds {
		if kind == k {
			return i
		}
	}
	return len(AllAssetKinds)
}

// Asset is a tradable instrument: a kind tag plus its kind-specific symbol.
// Crypto carries a coin symbol, Stock a ticker and Forex a currency pair.
type Asset struct {
	Kind   AssetKind `json:"kind"`
	Symbol string    `json:"symbol"`
}

// NewAsset builds an asset with a normalized symbol
func NewAsset(kind AssetKind, symbol string) Asset {
	return Asset{Kind: kind, Symbol: NormalizeSymbol(kind, symbol)}
}

// Crypto builds a crypto asset
func Crypto(coin string) Asset { return NewAsset(AssetKindCrypto, coin) }

// Stock builds a stock asset
func Stock(ticker string) Asset { return NewAsset(AssetKindStock, ticker) }

// Forex builds a forex asset from a currency pair like "eur/usd" or "EURUSD"
func Forex(pair string) Asset { return NewAsset(AssetKindForex, pair) }

// NormalizeSymbol trims and upper-cases a symbol. Six-letter forex pairs
// without a separator get one inserted (EURUSD -> EUR/USD).
func NormalizeSymbol(kind AssetKind, symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if kind == AssetKindForex {
		s = strings.ReplaceAll(s, "-", "/")
		if len(s) == 6 && !strings.Contains(s, "/") {
			s = s[:3] + "/" + s[3:]
		}
	}
	return s
}

// Key returns the composite (kind, symbol) key used for aggregation
func (a Asset) Key() AssetKey {
	return AssetKey{Kind: a.Kind, Symbol: NormalizeSymbol(a.Kind, a.Symbol)}
}

// Validate checks the kind and the kind-specific symbol shape
func (a Asset) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unsupported asset kind %q", a.Kind)
	}
	symbol := NormalizeSymbol(a.Kind, a.Symbol)
	if symbol == "" {
		return fmt.Errorf("%s asset symbol is required", strings.ToLower(string(a.Kind)))
	}

	var pattern *regexp.Regexp
	switch a.Kind {
	case AssetKindCrypto:
		pattern = cryptoSymbolPattern
	case AssetKindStock:
		pattern = stockSymbolPattern
	case AssetKindForex:
		pattern = forexSymbolPattern
	}
	if !pattern.MatchString(symbol) {
		return fmt.Errorf("invalid %s symbol %q", strings.ToLower(string(a.Kind)), a.Symbol)
	}
	return nil
}

func (a Asset) String() string {
	return a.Key().String()
}

// AssetKey identifies an asset across kinds. A stock ticker equal to a
// coin symbol yields two distinct keys.
type AssetKey struct {
	Kind   AssetKind
	Symbol string
}

func (k AssetKey) String() string {
	return string(k.Kind) + ":" + k.Symbol
}

// Less orders keys by kind, then symbol
func (k AssetKey) Less(other AssetKey) bool {
	if k.Kind != other.Kind {
		if ko, oo := k.Kind.order(), other.Kind.order(); ko != oo {
			return ko < oo
		}
		return k.Kind < other.Kind
	}
	return k.Symbol < other.Symbol
}
