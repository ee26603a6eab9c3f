// Command strategist manages portfolio ledgers and runs strategies from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aristath/strategist/internal/cli"
	"github.com/aristath/strategist/internal/config"
	"github.com/aristath/strategist/pkg/logger"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})

	app := &cli.App{
		Config: cfg,
		Log:    log,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	cli.Register(commander, app)

	flag.Parse()
	status := commander.Execute(context.Background())
	if err := app.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close ledger")
	}
	os.Exit(int(status))
}
