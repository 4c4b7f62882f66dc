package httpapp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/db"
	"github.com/usersdesk/usersdesk/internal/http/handlers"
	"github.com/usersdesk/usersdesk/internal/users"
)

type emptyAuthStore struct{}

func (emptyAuthStore) GetAuthUser(context.Context, int64) (db.AuthUser, error) {
	return db.AuthUser{}, pgx.ErrNoRows
}

func (emptyAuthStore) CountAuthUsers(context.Context) (int64, error) { return 0, nil }

func (emptyAuthStore) GetAuthUserByEmail(context.Context, string) (db.AuthUser, error) {
	return db.AuthUser{}, pgx.ErrNoRows
}

func (emptyAuthStore) UpdateAuthUserLoginMeta(context.Context, db.UpdateAuthUserLoginMetaParams) error {
	return nil
}

type emptySource struct{}

func (emptySource) ListUsers(_ context.Context, q users.Query) (users.Page, error) {
	return users.NewPage(nil, 0, q), nil
}

func (emptySource) GetUser(context.Context, string) (users.Details, error) {
	return users.Details{}, users.ErrNotFound
}

func (emptySource) SetUserStatus(context.Context, string, users.Status) error {
	return users.ErrNotFound
}

func (emptySource) Stats(context.Context) (users.Stats, error) { return users.Stats{}, nil }

func newTestServer(t *testing.T) *EchoServer {
	t.Helper()
	es, err := NewEchoServer(Deps{
		Queries:    emptyAuthStore{},
		Sessions:   scs.New(),
		Source:     emptySource{},
		SourceName: "db",
	})
	if err != nil {
		t.Fatalf("NewEchoServer: %v", err)
	}
	es.e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return es
}

func TestHTTPErrorHandlerInternalErrorIsGeneric(t *testing.T) {
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(handlers.ContextKeyRequestID, "req-123")

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, errors.New("very sensitive error"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusInternalServerError)
	}

	body := rec.Body.String()
	if strings.Contains(body, "very sensitive") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "Internal server error") {
		t.Fatalf("response missing generic message: %q", body)
	}
	if !strings.Contains(body, "Reference: req-123") {
		t.Fatalf("response missing request reference: %q", body)
	}
	if !strings.Contains(body, "Code: "+handlers.InternalErrorCode) {
		t.Fatalf("response missing error code: %q", body)
	}
}

func TestHTTPErrorHandlerNotFoundDoesNotLeakMessage(t *testing.T) {
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusNotFound, "leaky not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}

	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "404 page not found") {
		t.Fatalf("response missing not found message: %q", body)
	}
}

func TestHTTPErrorHandlerForbiddenRendersPage(t *testing.T) {
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/users/1/status", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, echo.ErrForbidden)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Fatalf("content type = %q, want html", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestHTTPStatusFromErrorUsesStatusCoder(t *testing.T) {
	if got := httpStatusFromError(echo.ErrNotFound); got != http.StatusNotFound {
		t.Fatalf("status=%d want %d", got, http.StatusNotFound)
	}
	if got := httpStatusFromError(echo.ErrForbidden); got != http.StatusForbidden {
		t.Fatalf("status=%d want %d", got, http.StatusForbidden)
	}
	if got := httpStatusFromError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", got, http.StatusInternalServerError)
	}
}

func TestHTTPErrorHandlerBadRequestUsesStatusText(t *testing.T) {
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/bad", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	es := &EchoServer{h: &handlers.Handlers{}, e: e}
	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusBadRequest, "leaky bad request"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusBadRequest)
	}

	body := rec.Body.String()
	if strings.Contains(body, "leaky") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if got := strings.TrimSpace(body); got != http.StatusText(http.StatusBadRequest) {
		t.Fatalf("body=%q want %q", got, http.StatusText(http.StatusBadRequest))
	}
}

func TestNewEchoServerRequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := NewEchoServer(Deps{}); err == nil {
		t.Fatalf("NewEchoServer without deps should fail")
	}
	if _, err := NewEchoServer(Deps{Sessions: scs.New(), Queries: emptyAuthStore{}}); err == nil {
		t.Fatalf("NewEchoServer without a users source should fail")
	}
}

func TestHealthzSetsRequestID(t *testing.T) {
	es := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("response missing request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "abc-123" {
		t.Fatalf("request id = %q, want abc-123", got)
	}
}

func TestUsersRequiresLogin(t *testing.T) {
	es := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users?page=2", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/login?next=%2Fusers%3Fpage%3D2" {
		t.Fatalf("Location = %q", got)
	}
}

func TestAPIRequiresLogin(t *testing.T) {
	es := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentType), "application/json") {
		t.Fatalf("content type = %q, want json", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestLoginPageRendersSetupHint(t *testing.T) {
	es := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="csrf"`) {
		t.Fatalf("login form missing csrf field")
	}
	if !strings.Contains(body, "bootstrap-admin") {
		t.Fatalf("login page missing setup hint")
	}
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	cases := map[int]string{200: "2xx", 303: "3xx", 422: "4xx", 502: "5xx", 0: "unknown"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Fatalf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}
