package metrics

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestListenerDisabled(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{"", "  ", "off", "Disabled", "false", "0"} {
		l := Listener{Addr: addr}
		if l.Enabled() {
			t.Fatalf("Listener{Addr: %q}.Enabled() = true", addr)
		}
		if err := l.Serve(context.Background()); err != nil {
			t.Fatalf("Serve(%q) = %v, want nil", addr, err)
		}
	}
	if !(Listener{Addr: ":9090"}).Enabled() {
		t.Fatalf(":9090 should be enabled")
	}
}

func TestListenerHandlerExposesUsersMetrics(t *testing.T) {
	t.Parallel()

	TableActionsTotal.WithLabelValues("sort").Inc()

	rec := httptest.NewRecorder()
	Listener{}.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "usersdesk_") {
		t.Fatalf("metrics output missing usersdesk series")
	}
}

func TestListenerServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	l := Listener{
		Addr:            ln.Addr().String(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		ShutdownTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusOK)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}
