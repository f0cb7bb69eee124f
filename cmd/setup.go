package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlain("Edit api.base_url to point at your FlowMaster server, then run 'flowmaster setup database'.\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}
