// Package cli implements the strategist command line subcommands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/internal/di"
)

// App carries what every subcommand needs. The ledger is opened lazily on first use.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Out    io.Writer
	Err    io.Writer

	// MarkdownStyle is a glamour standard style ("dark", "light", "notty"); empty auto-detects
	MarkdownStyle string

	container *di.Container
}

// Register adds every subcommand to the commander
func Register(c *subcommands.Commander, app *App) {
	c.Register(&portfolioCreateCmd{app: app}, "portfolios")
	c.Register(&portfolioListCmd{app: app}, "portfolios")

	c.Register(&txAddCmd{app: app}, "ledger")
	c.Register(&txStatusCmd{app: app}, "ledger")

	c.Register(&holdingsCmd{app: app}, "strategies")
	c.Register(&executeCmd{app: app}, "strategies")
}

// Container opens the configured ledger store and builds services once
func (a *App) Container(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	container, err := di.InitializeDatabases(a.Config, a.Log)
	if err != nil {
		return nil, err
	}
	if err := di.InitializeServices(ctx, container, a.Config, a.Log); err != nil {
		container.Close()
		return nil, err
	}

	a.container = container
	return container, nil
}

// Close releases the ledger if it was opened
func (a *App) Close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

func (a *App) failf(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, format+"\n", args...)
	return subcommands.ExitFailure
}

func (a *App) usagef(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, format+"\n", args...)
	return subcommands.ExitUsageError
}

// printMarkdown renders md for the terminal, or writes it untouched when raw is set
func (a *App) printMarkdown(md string, raw bool) error {
	if raw {
		_, err := io.WriteString(a.Out, md)
		return err
	}

	style := glamour.WithAutoStyle()
	if a.MarkdownStyle != "" {
		style = glamour.WithStandardStyle(a.MarkdownStyle)
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(120))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = io.WriteString(a.Out, out)
	return err
}
