package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
)

// portfolioCreateCmd holds the flags for the 'portfolio-create' subcommand.
type portfolioCreateCmd struct {
	app    *App
	userID string
	name   string
}

func (*portfolioCreateCmd) Name() string     { return "portfolio-create" }
func (*portfolioCreateCmd) Synopsis() string { return "create a portfolio and print its uid" }
func (*portfolioCreateCmd) Usage() string {
	return `strategist portfolio-create -user <id> [-name <name>]

  Creates an empty portfolio owned by the user.
`
}

func (c *portfolioCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "owning user id")
	f.StringVar(&c.name, "name", "Main", "portfolio name")
}

func (c *portfolioCreateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.userID) == "" {
		return c.app.usagef("-user is required")
	}

	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	p, err := container.Store.Create(ctx, c.userID, c.name)
	if err != nil {
		return c.app.failf("Error creating portfolio: %v", err)
	}

	fmt.Fprintln(c.app.Out, p.UID)
	return subcommands.ExitSuccess
}

// portfolioListCmd holds the flags for the 'portfolio-list' subcommand.
type portfolioListCmd struct {
	app    *App
	userID string
	raw    bool
}

func (*portfolioListCmd) Name() string     { return "portfolio-list" }
func (*portfolioListCmd) Synopsis() string { return "list portfolios" }
func (*portfolioListCmd) Usage() string {
	return `strategist portfolio-list [-user <id>] [-raw]

  Lists portfolios, optionally only those owned by one user.
`
}

func (c *portfolioListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "only list portfolios of this user")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal rendering")
}

func (c *portfolioListCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.Container(ctx)
	if err != nil {
		return c.app.failf("Error opening ledger: %v", err)
	}

	portfolios, err := container.Store.List(ctx, c.userID)
	if err != nil {
		return c.app.failf("Error listing portfolios: %v", err)
	}

	var b strings.Builder
	b.WriteString("# Portfolios\n\n")
	if len(portfolios) == 0 {
		b.WriteString("No portfolios.\n")
	} else {
		b.WriteString("| UID | User | Name | Created |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, p := range portfolios {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.UID, p.UserID, p.Name, p.CreatedAt.Format(time.RFC3339))
		}
	}

	if err := c.app.printMarkdown(b.String(), c.raw); err != nil {
		return c.app.failf("Error rendering portfolios: %v", err)
	}
	return subcommands.ExitSuccess
}
