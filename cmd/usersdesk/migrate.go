package main

import (
	"errors"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/usersdesk/usersdesk/internal/config"
)

const migrationsSource = "file://db/migrations"

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Run database migrations",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return configError(err)
		}

		m, err := migrate.New(migrationsSource, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil || dbErr != nil {
				slog.Warn("closing migrator", "source_error", srcErr, "database_error", dbErr)
			}
		}()

		apply := m.Up
		direction := "up"
		if migrateDown {
			apply = m.Down
			direction = "down"
		}

		if err := apply(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("no changes to apply", "direction", direction)
				return nil
			}
			return err
		}

		slog.Info("migrations applied successfully", "direction", direction)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back every migration instead of applying them")
}
