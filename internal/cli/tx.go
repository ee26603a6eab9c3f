package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/aristath/strategist/internal/domain"
)

// txAddCmd holds the flags for the 'tx-add' subcommand.
type txAddCmd struct {
	app          *App
	portfolioUID string
	kind         string
	symbol       string
	operation    string
	quantity     string
	price        string
	status       string
	at           string
	strategyID   string
	maxBuyPrice  string
	minSellPrice string
}

func (*txAddCmd) Name() string     { return "tx-add" }
func (*txAddCmd) Synopsis() string { return "append a transaction to a portfolio's ledger" }
func (*txAddCmd) Usage() string {
	return `strategist tx-add -portfolio <uid> -kind <crypto|stock|forex> -symbol <s> -op <buy|sell> -qty <n> -price <p> [-status executed] [-at <RFC3339>]

  Appends a ledger entry and prints its id.
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioUID, "portfolio", "", "portfolio uid")
	f.StringVar(&c.kind, "kind", "", "asset kind: crypto, stock or forex")
	f.StringVar(&c.symbol, "symbol", "", "coin, ticker or currency pair")
	f.StringVar(&c.operation, "op", "", "buy or sell")
	f.StringVar(&c.quantity, "qty", "", "quantity")
	f.StringVar(&c.price, "price", "", "unit price")
	f.StringVar(&c.status, "status", string(domain.StatusExecuted), "pending, executed or cancelled")
	f.StringVar(&c.at, "at", "", "timestamp in RFC3339 (default now)")
	f.StringVar(&c.strategyID, "strategy", "", "strategy that produced the entry")
	f.StringVar(&c.maxBuyPrice, "max-buy", "", "limit threshold for pending buys")
	f.StringVar(&c.minSellPrice, "min-sell", "", "limit threshold for pending sells")
}

func (c *txAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tx, err := c.transaction()
	if err != nil {
		return c.app.usagef("%v", err)
	}

	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	stored, err := container.Store.Append(ctx, tx)
	if err != nil {
		return c.app.failf("Error appending transaction: %v", err)
	}

	fmt.Fprintln(c.app.Out, stored.ID)
	return subcommands.ExitSuccess
}

func (c *txAddCmd) transaction() (domain.Transaction, error) {
	if c.portfolioUID == "" {
		return domain.Transaction{}, fmt.Errorf("-portfolio is required")
	}

	kind, err := domain.ParseAssetKind(c.kind)
	if err != nil {
		return domain.Transaction{}, err
	}
	op, err := domain.ParseOperationType(c.operation)
	if err != nil {
		return domain.Transaction{}, err
	}
	status, err := domain.ParseTransactionStatus(c.status)
	if err != nil {
		return domain.Transaction{}, err
	}
	quantity, err := decimal.NewFromString(c.quantity)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid -qty %q: %w", c.quantity, err)
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid -price %q: %w", c.price, err)
	}

	tx := domain.Transaction{
		PortfolioUID: c.portfolioUID,
		Asset:        domain.NewAsset(kind, c.symbol),
		Operation:    op,
		Status:       status,
		Quantity:     quantity,
		Price:        price,
	}

	if c.at != "" {
		ts, err := time.Parse(time.RFC3339, c.at)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("invalid -at %q: %w", c.at, err)
		}
		tx.Timestamp = ts.UTC()
	}
	if c.strategyID != "" {
		strategyID := c.strategyID
		tx.StrategyID = &strategyID
	}
	if tx.MaxBuyPrice, err = optionalDecimal("-max-buy", c.maxBuyPrice); err != nil {
		return domain.Transaction{}, err
	}
	if tx.MinSellPrice, err = optionalDecimal("-min-sell", c.minSellPrice); err != nil {
		return domain.Transaction{}, err
	}

	return tx, nil
}

func optionalDecimal(flagName, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", flagName, value, err)
	}
	return &d, nil
}

// txStatusCmd holds the flags for the 'tx-status' subcommand.
type txStatusCmd struct {
	app    *App
	id     string
	status string
}

func (*txStatusCmd) Name() string     { return "tx-status" }
func (*txStatusCmd) Synopsis() string { return "move a pending transaction to executed or cancelled" }
func (*txStatusCmd) Usage() string {
	return `strategist tx-status -id <transaction id> -status <executed|cancelled>

  Only PENDING entries can change status.
`
}

func (c *txStatusCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "transaction id")
	f.StringVar(&c.status, "status", "", "executed or cancelled")
}

func (c *txStatusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		return c.app.usagef("-id is required")
	}
	status, err := domain.ParseTransactionStatus(c.status)
	if err != nil {
		return c.app.usagef("%v", err)
	}

	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	tx, err := container.Store.UpdateStatus(ctx, c.id, status)
	if err != nil {
		return c.app.failf("Error updating transaction: %v", err)
	}

	fmt.Fprintf(c.app.Out, "%s %s\n", tx.ID, tx.Status)
	return subcommands.ExitSuccess
}
