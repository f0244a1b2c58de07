package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/constants_registry/internal/app/runtime"
	"github.com/R3E-Network/constants_registry/internal/app/storage/sqlstore"
	"github.com/R3E-Network/constants_registry/internal/config"
	"github.com/R3E-Network/constants_registry/internal/platform/migrations"
)

func migrateCommand() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Apply the database schema",
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errors.New("the memory driver has no schema to migrate")
			}
			log := commonRun(cfg)

			db, dialect, err := runtime.OpenDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}

			if dialect != sqlstore.Postgres {
				defer db.Close()
				if down {
					return fmt.Errorf("down migrations are only supported on postgres")
				}
				if err := migrations.Apply(cmd.Context(), db); err != nil {
					return err
				}
				log.WithField("migrations", migrations.Count()).Info("schema applied")
				return nil
			}

			direction := migrations.Up
			if down {
				direction = migrations.Down
			}
			// Migrate closes db.
			v, err := migrations.Migrate(db, direction)
			if err != nil {
				return err
			}
			log.WithField("direction", string(direction)).
				WithField("version", v).
				Info("migrations complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll every migration back")
	return cmd
}
