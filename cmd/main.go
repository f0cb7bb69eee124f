package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error(err.Error())
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command. Global flags are applied by [Runner.configure] before any subcommand runs.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "flowmaster",
		Usage:   "Plan your day from the terminal: todo, watch and later lists plus a daily card",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("FLOWMASTER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Override api.base_url from the config file",
				Sources: cli.EnvVars("FLOWMASTER_API_URL"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Before:   runner.configure,
		After:    runner.close,
		Commands: runner.register(),
	}
}
