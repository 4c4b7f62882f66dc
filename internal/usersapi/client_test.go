package usersapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/usersdesk/usersdesk/internal/users"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "test-key",
		MaxRetries: 3,
		RetryWait:  time.Millisecond,
		Logger:     nil,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

const samplePage = `{
  "data": [
    {"id": 1, "organization": "Lendsqr", "username": "adedeji", "email": "adedeji@lendsqr.com",
     "phoneNumber": "08078903721", "dateJoined": "2020-05-15T10:00:00Z", "status": "Active"},
    {"id": "2", "organization": "Irorun", "username": "debby", "email": "debby@irorun.com",
     "phoneNumber": "08160780928", "dateJoined": "2020-04-30", "status": "pending"}
  ],
  "totalItems": 42,
  "page": 2,
  "pageSize": 10,
  "pageCount": 5
}`

func TestListUsersSendsFlattenedQueryAndKey(t *testing.T) {
	t.Parallel()

	var gotQuery map[string][]string
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, samplePage)
	})

	q := users.Query{
		Filters:   users.Filters{Organization: users.StringPtr("Lendsqr"), Email: users.StringPtr("")},
		PageIndex: 1,
		PageSize:  10,
	}
	page, err := c.ListUsers(context.Background(), q)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}

	if gotPath != "/v1/users" {
		t.Fatalf("path = %q, want /v1/users", gotPath)
	}
	wantQuery := map[string][]string{
		"organization": {"Lendsqr"},
		"page":         {"2"},
		"pageSize":     {"10"},
		"key":          {"test-key"},
	}
	if diff := cmp.Diff(wantQuery, gotQuery); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}

	if page.TotalItems != 42 || page.PageCount != 5 || page.Page != 2 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}
	if len(page.Data) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(page.Data))
	}
	first := page.Data[0]
	if first.ID != "1" || first.Status != users.StatusActive {
		t.Fatalf("first row = %+v", first)
	}
	if want := time.Date(2020, 5, 15, 10, 0, 0, 0, time.UTC); !first.DateJoined.Equal(want) {
		t.Fatalf("dateJoined = %v, want %v", first.DateJoined, want)
	}
}

func TestListUsersCachesByFetchKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, samplePage)
	})

	q := users.Query{PageSize: 10}
	for i := 0; i < 3; i++ {
		if _, err := c.ListUsers(context.Background(), q); err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}

	q.PageIndex = 1
	if _, err := c.ListUsers(context.Background(), q); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("a different page must not hit the cache; calls = %d", got)
	}
}

func TestListUsersRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, samplePage)
	})

	if _, err := c.ListUsers(context.Background(), users.Query{}); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestListUsersFailuresAreErrFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{name: "client error not retried", status: http.StatusBadRequest, body: `{}`, wantCalls: 1},
		{name: "server error exhausts retries", status: http.StatusInternalServerError, body: `{}`, wantCalls: 3},
		{name: "malformed body", status: http.StatusOK, body: `{"data": [`, wantCalls: 1},
		{name: "negative page count", status: http.StatusOK, body: `{"data": [], "totalItems": 0, "page": 1, "pageCount": -1}`, wantCalls: 1},
		{name: "huge page number", status: http.StatusOK, body: `{"data": [], "totalItems": 0, "page": 1e12, "pageCount": 1}`, wantCalls: 1},
		{name: "fractional page count", status: http.StatusOK, body: `{"data": [], "totalItems": 25, "page": 1, "pageCount": 2.5}`, wantCalls: 1},
		{name: "fractional page", status: http.StatusOK, body: `{"data": [], "totalItems": 25, "page": 1.5, "pageCount": 3}`, wantCalls: 1},
		{name: "fractional total", status: http.StatusOK, body: `{"data": [], "totalItems": 1.5, "page": 1, "pageCount": 1}`, wantCalls: 1},
		{name: "bad date", status: http.StatusOK, body: `{"data": [{"id": "1", "dateJoined": "yesterday"}], "totalItems": 1, "page": 1, "pageCount": 1}`, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.ListUsers(context.Background(), users.Query{})
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("err = %v, want ErrFetch", err)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestListUsersNetworkFailureIsErrFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, MaxRetries: 1, RetryWait: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.ListUsers(context.Background(), users.Query{}); !errors.Is(err, ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
}

func TestGetUserDecodesProfileAndMapsNotFound(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/7":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":           "7",
				"organization": "PayFlow",
				"username":     "grace",
				"email":        "grace@payflow.com",
				"dateJoined":   "2021-03-09T15:30:00Z",
				"status":       "blacklisted",
				"profile": map[string]any{
					"tier":           2,
					"bankName":       "Providus Bank",
					"personalInfo":   map[string]any{"fullName": "Grace Effiom"},
					"guarantors":     []map[string]any{{"fullName": "Debby Ogana"}},
					"accountBalance": "₦200,000.00",
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	d, err := c.GetUser(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if d.Status != users.StatusBlacklisted || d.Profile.Tier != 2 || d.Profile.Personal.FullName != "Grace Effiom" {
		t.Fatalf("unexpected details %+v", d)
	}
	if len(d.Profile.Guarantors) != 1 {
		t.Fatalf("guarantors = %+v", d.Profile.Guarantors)
	}

	if _, err := c.GetUser(context.Background(), "404"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("err = %v, want users.ErrNotFound", err)
	}
}

func TestSetUserStatusPatchesAndFlushesCache(t *testing.T) {
	t.Parallel()

	var listCalls atomic.Int32
	var patched map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/users":
			listCalls.Add(1)
			_, _ = io.WriteString(w, samplePage)
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/users/1":
			if r.URL.Query().Get("key") != "test-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&patched)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	if _, err := c.ListUsers(ctx, users.Query{}); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if err := c.SetUserStatus(ctx, "1", users.StatusBlacklisted); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	if patched["status"] != "blacklisted" {
		t.Fatalf("patched body = %v", patched)
	}
	if _, err := c.ListUsers(ctx, users.Query{}); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if got := listCalls.Load(); got != 2 {
		t.Fatalf("list calls = %d, want 2 after cache flush", got)
	}

	if err := c.SetUserStatus(ctx, "9", users.StatusActive); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("err = %v, want users.ErrNotFound", err)
	}
	if err := c.SetUserStatus(ctx, "1", users.Status("archived")); err == nil {
		t.Fatalf("expected invalid status error")
	}
}

func TestStatsIsPartial(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		total := 120
		if r.URL.Query().Get("status") == "active" {
			total = 71
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{}, "totalItems": total, "page": 1, "pageSize": 1, "pageCount": total,
		})
	})

	got, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := users.Stats{Total: 120, Active: 71, Partial: true}
	if got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not a url", "/relative", "ftp://example.test"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Fatalf("New(%q) should fail", raw)
		}
	}
}
