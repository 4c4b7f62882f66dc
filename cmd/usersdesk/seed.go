package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/db"
	"github.com/usersdesk/usersdesk/internal/users"
)

const seedTimeout = 2 * time.Minute

var (
	seedCount int
	seedValue uint64
)

var seedCmd = &cobra.Command{
	Use:         "seed",
	Short:       "Load generated users into the database.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return configError(err)
		}
		n := seedCount
		if !cmd.Flags().Changed("count") {
			n = cfg.SeedCount
		}
		if n < 1 {
			return errors.New("--count must be positive")
		}
		if cfg.UsersSource != config.SourceDB {
			slog.Warn("seeding the database while USERS_SOURCE is not db; the dashboard will not show these rows", "users_source", cfg.UsersSource)
		}
		return runSeed(cmd.Context(), cfg, n, seedValue)
	},
}

func runSeed(parent context.Context, cfg config.Config, n int, seed uint64) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, seedTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	records := users.GenerateMock(n, seed)
	written, err := db.NewStore(pool).Seed(ctx, records)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	slog.Info("seeded users", "generated", len(records), "written", written, "seed", seed)
	return nil
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 0, "Number of users to generate (defaults to SEED_COUNT)")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 1, "Random seed; the same seed produces the same users")
}
