package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pitch/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Configuration written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set backend.base_url and backend.artist_id\n")
	r.writePlain("2. Run 'pitch setup database' to enable the send history\n")
	return nil
}

// SetupDatabase initializes the send log database and runs migrations.
//
// With --rollback the most recent migration is reverted afterwards.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Path == "" {
		return shared.ErrArchiveDisabled
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.archive()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Info("rolled back latest migration", "path", r.config.Database.Path)
		r.writePlain("✓ Rolled back the latest migration of %s\n", r.config.Database.Path)
		return nil
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Send log database ready at %s\n", r.config.Database.Path)
	return nil
}
