package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rlabuda/cfgvault/internal/app"
	"github.com/rlabuda/cfgvault/internal/configstore"
	"github.com/rlabuda/cfgvault/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "cfgvault",
		Usage: "secret-indirected configuration store for per-service settings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "store--dir",
				Usage: "directory holding service documents",
			},
			&cli.StringFlag{
				Name:  "vault--backend",
				Usage: "secret vault backend (keyring|memory|none)",
			},
		},
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			unsetCommand(),
			showCommand(),
			ageCommand(),
			auditCommand(),
			migrateCommand(),
			backupsCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setup loads the application configuration, instruments logging, and
// builds the store every subcommand operates on.
func setup(cmd *cli.Command) (*app.Config, *configstore.Store, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	store, err := cfg.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}
	return cfg, store, nil
}
