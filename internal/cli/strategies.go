package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/aristath/strategist/internal/domain"
	"github.com/aristath/strategist/internal/modules/execution"
	"github.com/aristath/strategist/internal/modules/portfolio"
)

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	app          *App
	portfolioUID string
	raw          bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the holdings aggregated from a portfolio's ledger" }
func (*holdingsCmd) Usage() string {
	return `strategist holdings -portfolio <uid> [-raw]

  Aggregates executed transactions into per-asset quantity, average cost and realized gain.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioUID, "portfolio", "", "portfolio uid")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal rendering")
}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolioUID == "" {
		return c.app.usagef("-portfolio is required")
	}

	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	p, holdings, err := container.PortfolioService.GetHoldings(ctx, c.portfolioUID)
	if err != nil {
		return c.app.failf("Error computing holdings: %v", err)
	}

	if err := c.app.printMarkdown(holdingsMarkdown(p, holdings), c.raw); err != nil {
		return c.app.failf("Error rendering holdings: %v", err)
	}
	return subcommands.ExitSuccess
}

func holdingsMarkdown(p domain.Portfolio, holdings portfolio.Holdings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Name)
	fmt.Fprintf(&b, "Portfolio `%s` owned by `%s`\n\n", p.UID, p.UserID)

	assets := holdings.Sorted()
	if len(assets) == 0 {
		b.WriteString("No holdings.\n")
		return b.String()
	}

	b.WriteString("| Asset | Kind | Quantity | Average cost | Cost basis | Realized gain |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|\n")
	for _, a := range assets {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			a.Asset.Symbol,
			a.Asset.Kind,
			a.Quantity.String(),
			a.AverageCost.StringFixed(2),
			a.CostBasis().StringFixed(2),
			a.RealizedGain.StringFixed(2),
		)
	}
	return b.String()
}

// executeCmd holds the flags for the 'execute' subcommand.
type executeCmd struct {
	app          *App
	portfolioUID string
	userID       string
	strategyID   string
	code         string
	codeFile     string
	startDate    string
	endDate      string
}

func (*executeCmd) Name() string     { return "execute" }
func (*executeCmd) Synopsis() string { return "run a strategy against a portfolio on the execution engine" }
func (*executeCmd) Usage() string {
	return `strategist execute -portfolio <uid> -user <id> -strategy <id> (-code <src> | -code-file <path>) -start YYYY-MM-DD -end YYYY-MM-DD

  Prints the engine's response body on success. Failures print their kind and message.
`
}

func (c *executeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioUID, "portfolio", "", "portfolio uid")
	f.StringVar(&c.userID, "user", "", "requesting user id")
	f.StringVar(&c.strategyID, "strategy", "", "strategy id")
	f.StringVar(&c.code, "code", "", "strategy source code")
	f.StringVar(&c.codeFile, "code-file", "", "file holding the strategy source code")
	f.StringVar(&c.startDate, "start", "", "backtest start date (YYYY-MM-DD)")
	f.StringVar(&c.endDate, "end", "", "backtest end date (YYYY-MM-DD)")
}

func (c *executeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	code := c.code
	if c.codeFile != "" {
		if code != "" {
			return c.app.usagef("use either -code or -code-file")
		}
		data, err := os.ReadFile(c.codeFile)
		if err != nil {
			return c.app.failf("Error reading strategy code: %v", err)
		}
		code = string(data)
	}

	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	outcome, err := container.Dispatcher.Execute(ctx, execution.ExecuteRequest{
		PortfolioUID: c.portfolioUID,
		UserID:       c.userID,
		StrategyID:   c.strategyID,
		StrategyCode: code,
		StartDate:    c.startDate,
		EndDate:      c.endDate,
	})
	if err != nil {
		var execErr *execution.Error
		if errors.As(err, &execErr) {
			if execErr.Kind == execution.KindInvalidRequest {
				return c.app.usagef("%s: %s", execErr.Kind, execErr.Message)
			}
			return c.app.failf("%s: %s", execErr.Kind, execErr.Message)
		}
		return c.app.failf("Error executing strategy: %v", err)
	}

	if _, err := c.app.Out.Write(outcome.Body); err != nil {
		return c.app.failf("Error writing engine response: %v", err)
	}
	if len(outcome.Body) > 0 && outcome.Body[len(outcome.Body)-1] != '\n' {
		fmt.Fprintln(c.app.Out)
	}
	return subcommands.ExitSuccess
}
