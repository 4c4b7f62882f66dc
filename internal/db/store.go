package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/users"
)

// ErrNotFound aliases users.ErrNotFound so callers of this package can match
// it without importing users.
var ErrNotFound = users.ErrNotFound

// Store serves users.Source from the users table.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
}

var _ users.Source = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// ListUsers runs the count and the page query concurrently on separate
// pool connections.
func (s *Store) ListUsers(ctx context.Context, query users.Query) (users.Page, error) {
	var (
		total int64
		rows  []users.User
	)
	start := time.Now()
	defer func() {
		metrics.UsersListDuration.WithLabelValues("db").Observe(time.Since(start).Seconds())
	}()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.q.CountUsers(gctx, query.Filters)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		items, err := s.q.ListUsers(gctx, ListUsersParams{
			Filters: query.Filters,
			Sort:    query.Sort,
			Limit:   query.Limit(),
			Offset:  query.Offset(),
		})
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		rows = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return users.Page{}, err
	}
	return users.NewPage(rows, total, query), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (users.Details, error) {
	row, err := s.q.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.Details{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return users.Details{}, err
	}

	details := users.Details{User: row.User()}
	if len(row.Profile) > 0 {
		if err := json.Unmarshal(row.Profile, &details.Profile); err != nil {
			return users.Details{}, fmt.Errorf("decode profile for user %s: %w", id, err)
		}
	}
	details.Profile.HasLoans = row.HasLoans
	details.Profile.HasSavings = row.HasSavings
	return details, nil
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status users.Status) error {
	if _, ok := users.ParseStatus(string(status)); !ok {
		return fmt.Errorf("invalid status %q", status)
	}
	n, err := s.q.UpdateUserStatus(ctx, id, string(status))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (users.Stats, error) {
	return s.q.GetUserStats(ctx)
}

// Seed upserts records inside one transaction.
func (s *Store) Seed(ctx context.Context, records []users.Details) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := s.q.WithTx(tx).UpsertUsers(ctx, records)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}
