package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usersdesk/usersdesk/internal/logging"
)

const (
	metricsReadHeaderTimeout   = 5 * time.Second
	defaultMetricsShutdownWait = 5 * time.Second
)

// Listener serves the Prometheus registry on its own address, separate from
// the users console.
type Listener struct {
	Addr            string
	Logger          *slog.Logger
	ShutdownTimeout time.Duration
}

// Enabled reports whether Addr names a listen address rather than an
// explicit "off" value.
func (l Listener) Enabled() bool {
	addr := strings.TrimSpace(l.Addr)
	if addr == "" {
		return false
	}
	switch strings.ToLower(addr) {
	case "off", "disabled", "false", "0":
		return false
	}
	return true
}

// Handler returns the mux exposing /metrics.
func (l Listener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve blocks until ctx is canceled or the listener fails. A disabled
// listener returns nil immediately.
func (l Listener) Serve(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	ln, err := net.Listen("tcp", strings.TrimSpace(l.Addr))
	if err != nil {
		return err
	}
	return l.serve(ctx, ln)
}

func (l Listener) serve(ctx context.Context, ln net.Listener) error {
	logger := logging.Component(l.Logger, "metrics")
	wait := l.ShutdownTimeout
	if wait <= 0 {
		wait = defaultMetricsShutdownWait
	}

	srv := &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "err", err)
		return err
	}
	logger.Info("metrics stopped")
	return nil
}
