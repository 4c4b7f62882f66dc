package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/db"
	httpapp "github.com/usersdesk/usersdesk/internal/http"
	"github.com/usersdesk/usersdesk/internal/http/handlers"
	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/users"
	"github.com/usersdesk/usersdesk/internal/usersapi"
)

const (
	sessionCookieName = "usersdesk_session"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the HTTP server.",
	Args:        cobra.NoArgs,
	Annotations: structuredLogAnnotation(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return configError(err)
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	logger := slog.Default()
	source, err := buildUsersSource(cfg, pool, logger)
	if err != nil {
		return configError(err)
	}

	srv, err := httpapp.NewEchoServer(httpapp.Deps{
		Cfg:          cfg,
		Queries:      db.New(pool),
		Sessions:     newSessionManager(cfg, pgxstore.New(pool)),
		Source:       source,
		SourceName:   cfg.UsersSource,
		LoginLimiter: handlers.NewLoginLimiter(cfg.LoginRatePerMinute),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr, "users_source", cfg.UsersSource)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	metricsListener := metrics.Listener{
		Addr:            cfg.MetricsAddr,
		Logger:          logger,
		ShutdownTimeout: shutdownTimeout,
	}
	if metricsListener.Enabled() {
		g.Go(func() error {
			if err := metricsListener.Serve(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// buildUsersSource picks the backing register for the users table.
func buildUsersSource(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (users.Source, error) {
	switch cfg.UsersSource {
	case config.SourceAPI:
		client, err := usersapi.New(usersapi.Config{
			BaseURL:    cfg.UsersAPIBaseURL,
			APIKey:     cfg.UsersAPIKey,
			Timeout:    cfg.UsersAPITimeout,
			CacheTTL:   cfg.UsersAPICacheTTL,
			MaxRetries: cfg.UsersAPIMaxRetries,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.SourceDB, "":
		if pool == nil {
			return nil, errors.New("database pool is required for the db users source")
		}
		return db.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown users source %q", cfg.UsersSource)
	}
}

func newSessionManager(cfg config.Config, store scs.Store) *scs.SessionManager {
	sm := scs.New()
	if store != nil {
		sm.Store = store
	}
	sm.Lifetime = cfg.SessionLifetime
	sm.Cookie.Name = sessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.AuthCookieSecure
	return sm
}
