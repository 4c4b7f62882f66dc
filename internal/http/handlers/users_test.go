package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/auth"
	"github.com/usersdesk/usersdesk/internal/http/authn"
	"github.com/usersdesk/usersdesk/internal/tablestate"
	"github.com/usersdesk/usersdesk/internal/users"
	"github.com/usersdesk/usersdesk/internal/usersapi"
)

// fakeSource serves a fixed slice of users and records every query.
type fakeSource struct {
	mu      sync.Mutex
	rows    []users.User
	listErr error
	queries []users.Query
	updated map[string]users.Status
}

func newFakeSource(n int) *fakeSource {
	rows := make([]users.User, 0, n)
	joined := time.Date(2021, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		rows = append(rows, users.User{
			ID:           strconv.Itoa(i),
			Organization: "Lendsqr",
			Username:     fmt.Sprintf("user%02d", i),
			Email:        fmt.Sprintf("user%02d@lendsqr.com", i),
			DateJoined:   joined.AddDate(0, 0, i),
			Status:       users.StatusActive,
		})
	}
	return &fakeSource{rows: rows, updated: map[string]users.Status{}}
}

func (f *fakeSource) ListUsers(_ context.Context, q users.Query) (users.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return users.Page{}, f.listErr
	}
	if q.Offset() < 0 {
		return users.Page{}, fmt.Errorf("negative offset %d", q.Offset())
	}
	start := min(q.Offset(), len(f.rows))
	end := min(start+q.Limit(), len(f.rows))
	return users.NewPage(f.rows[start:end], int64(len(f.rows)), q), nil
}

func (f *fakeSource) GetUser(_ context.Context, id string) (users.Details, error) {
	for _, u := range f.rows {
		if u.ID == id {
			return users.Details{User: u, Profile: users.Profile{Personal: users.PersonalInfo{FullName: "Name " + id}}}, nil
		}
	}
	return users.Details{}, users.ErrNotFound
}

func (f *fakeSource) SetUserStatus(_ context.Context, id string, status users.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.ID == id {
			f.updated[id] = status
			return nil
		}
	}
	return users.ErrNotFound
}

func (f *fakeSource) Stats(context.Context) (users.Stats, error) {
	return users.Stats{Total: int64(len(f.rows)), Active: int64(len(f.rows)), Partial: true}, nil
}

func (f *fakeSource) lastQuery(t *testing.T) users.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		t.Fatalf("source was never queried")
	}
	return f.queries[len(f.queries)-1]
}

// usersFixture shares one session between successive requests.
type usersFixture struct {
	h      *Handlers
	source *fakeSource
	ctx    context.Context
}

func newUsersFixture(t *testing.T, n int) *usersFixture {
	t.Helper()
	sessions := scs.New()
	ctx, err := sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("sessions.Load() error = %v", err)
	}
	source := newFakeSource(n)
	return &usersFixture{
		h:      &Handlers{Sessions: sessions, Source: source, SourceName: "db"},
		source: source,
		ctx:    ctx,
	}
}

func (fx *usersFixture) bind(c *echo.Context) *echo.Context {
	c.SetRequest(c.Request().WithContext(fx.ctx))
	return c
}

func (fx *usersFixture) state(t *testing.T) tablestate.State {
	t.Helper()
	raw := fx.h.Sessions.GetBytes(fx.ctx, sessionKeyTableState)
	if len(raw) == 0 {
		return tablestate.Initial()
	}
	s, err := tablestate.Decode(raw)
	if err != nil {
		t.Fatalf("decode session state: %v", err)
	}
	return s
}

func (fx *usersFixture) post(t *testing.T, handler func(*echo.Context) error, path string, form url.Values, htmx bool) (int, string, http.Header) {
	t.Helper()
	c, rec := newFormContext("http://example.com"+path, form)
	fx.bind(c)
	if htmx {
		markHTMX(c, "users-results")
	}
	if err := handler(c); err != nil {
		t.Fatalf("%s error = %v", path, err)
	}
	return rec.Code, rec.Body.String(), rec.Header()
}

func TestHandleUsersRendersFirstPage(t *testing.T) {
	fx := newUsersFixture(t, 25)
	c, rec := newTestContext(http.MethodGet, "http://example.com/users")
	fx.bind(c)

	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	for _, want := range []string{`id="users-results"`, "out of 25", `aria-label="Page 3"`, "user01@lendsqr.com", "stat-card", "Source: db"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Contains(body, "user11@lendsqr.com") {
		t.Fatalf("first page rendered a row from page 2")
	}

	q := fx.source.lastQuery(t)
	if q.PageIndex != 0 || q.Limit() != users.DefaultPageSize {
		t.Fatalf("query = %+v", q)
	}
}

func TestHandleUsersQueryParamsReplaceState(t *testing.T) {
	fx := newUsersFixture(t, 25)
	c, _ := newTestContext(http.MethodGet, "http://example.com/users?organization=Lendsqr&page=2&pageSize=20&sortBy=email&sortDir=desc")
	fx.bind(c)

	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}

	want := tablestate.State{
		Filters:    users.Filters{Organization: users.StringPtr("Lendsqr")},
		Pagination: tablestate.Pagination{PageIndex: 1, PageSize: 20},
		Sorting:    users.Sort{Column: users.SortEmail, Desc: true},
	}
	if diff := cmp.Diff(want, fx.state(t)); diff != "" {
		t.Fatalf("persisted state mismatch (-want +got):\n%s", diff)
	}
	if got := fx.source.lastQuery(t).Key(); got != want.FetchKey() {
		t.Fatalf("fetch key = %q, want %q", got, want.FetchKey())
	}
}

func TestTableActionsPersistAcrossRequests(t *testing.T) {
	fx := newUsersFixture(t, 60)

	code, _, header := fx.post(t, fx.h.HandleUsersPage, "/users/page", url.Values{"page": {"3"}}, false)
	if code != http.StatusSeeOther || header.Get("Location") != "/users" {
		t.Fatalf("page post = %d %q", code, header.Get("Location"))
	}
	if got := fx.state(t).Pagination.PageIndex; got != 2 {
		t.Fatalf("page index = %d, want 2", got)
	}

	fx.post(t, fx.h.HandleUsersPageSize, "/users/page-size", url.Values{"pageSize": {"20"}}, false)
	if got := fx.state(t).Pagination; got != (tablestate.Pagination{PageIndex: 0, PageSize: 20}) {
		t.Fatalf("pagination after page size = %+v", got)
	}

	fx.post(t, fx.h.HandleUsersPage, "/users/page", url.Values{"page": {"2"}}, false)
	fx.post(t, fx.h.HandleUsersSetFilters, "/users/filters", url.Values{"status": {"Active"}}, false)
	s := fx.state(t)
	if s.Filters.Value(users.FieldStatus) != "active" {
		t.Fatalf("status filter = %q", s.Filters.Value(users.FieldStatus))
	}
	if s.Pagination != tablestate.InitialPagination() {
		t.Fatalf("filters must reset pagination, got %+v", s.Pagination)
	}

	fx.post(t, fx.h.HandleUsersClearFilter, "/users/filters/clear", url.Values{"field": {"status"}}, false)
	if !fx.state(t).Filters.IsEmpty() {
		t.Fatalf("filter not cleared: %+v", fx.state(t).Filters)
	}

	fx.post(t, fx.h.HandleUsersSort, "/users/sort", url.Values{"column": {"username"}}, false)
	fx.post(t, fx.h.HandleUsersReset, "/users/reset", url.Values{}, false)
	if diff := cmp.Diff(tablestate.Initial(), fx.state(t)); diff != "" {
		t.Fatalf("reset state mismatch (-want +got):\n%s", diff)
	}
}

func TestTableActionSwapsFragmentForHTMX(t *testing.T) {
	fx := newUsersFixture(t, 25)

	code, body, header := fx.post(t, fx.h.HandleUsersSort, "/users/sort", url.Values{"column": {"username"}}, true)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if !strings.HasPrefix(body, `<section id="users-results"`) {
		t.Fatalf("expected results fragment, got %.80q", body)
	}
	if strings.Contains(body, "<html") || strings.Contains(body, "stat-card") {
		t.Fatalf("fragment must not include page chrome")
	}
	if got := header.Get("HX-Push-Url"); !strings.Contains(got, "sortBy=username") {
		t.Fatalf("HX-Push-Url = %q", got)
	}
	vary := parseVaryHeader(header.Get("Vary"))
	if vary["hx-request"] != 1 || vary["hx-target"] != 1 {
		t.Fatalf("Vary = %v", vary)
	}
	if got := fx.source.lastQuery(t).Sort; got != (users.Sort{Column: users.SortUsername}) {
		t.Fatalf("sort = %+v", got)
	}
}

func TestSetFiltersRejectsInvalidInput(t *testing.T) {
	fx := newUsersFixture(t, 5)

	code, body, _ := fx.post(t, fx.h.HandleUsersSetFilters, "/users/filters", url.Values{
		"email":        {"not-an-email"},
		"organization": {"Lendsqr"},
	}, false)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(body, "Invalid email format") || !strings.Contains(body, `value="not-an-email"`) {
		t.Fatalf("body missing field error or submitted value")
	}
	if !fx.state(t).Filters.IsEmpty() {
		t.Fatalf("invalid submission must not change the table state")
	}
}

func TestTableActionsRejectGarbage(t *testing.T) {
	fx := newUsersFixture(t, 5)

	cases := []struct {
		name    string
		handler func(*echo.Context) error
		form    url.Values
	}{
		{"page zero", fx.h.HandleUsersPage, url.Values{"page": {"0"}}},
		{"page size not offered", fx.h.HandleUsersPageSize, url.Values{"pageSize": {"7"}}},
		{"unknown sort column", fx.h.HandleUsersSort, url.Values{"column": {"password"}}},
		{"unknown filter field", fx.h.HandleUsersClearFilter, url.Values{"field": {"bvn"}}},
	}
	for _, tc := range cases {
		c, _ := newFormContext("http://example.com/users", tc.form)
		fx.bind(c)
		if err := tc.handler(c); !errors.Is(err, echo.ErrBadRequest) {
			t.Fatalf("%s: err = %v, want ErrBadRequest", tc.name, err)
		}
	}
}

func TestHandleUsersShowsFetchError(t *testing.T) {
	fx := newUsersFixture(t, 5)
	fx.source.listErr = fmt.Errorf("%w: GET /users: connection refused", usersapi.ErrFetch)

	c, rec := newTestContext(http.MethodGet, "http://example.com/users")
	fx.bind(c)
	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), fetchErrorMessage) {
		t.Fatalf("body missing fetch error")
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("fetch error details leaked")
	}
}

func TestHandleUsersClampsStalePageIndex(t *testing.T) {
	fx := newUsersFixture(t, 25)
	stale, _ := tablestate.Encode(tablestate.State{Pagination: tablestate.Pagination{PageIndex: 9, PageSize: 10}})
	fx.h.Sessions.Put(fx.ctx, sessionKeyTableState, stale)

	c, rec := newTestContext(http.MethodGet, "http://example.com/users")
	fx.bind(c)
	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if got := fx.source.lastQuery(t).PageIndex; got != 2 {
		t.Fatalf("refetched page index = %d, want 2", got)
	}
	if got := fx.state(t).Pagination.PageIndex; got != 2 {
		t.Fatalf("persisted page index = %d, want 2", got)
	}
	if !strings.Contains(rec.Body.String(), "user21@lendsqr.com") {
		t.Fatalf("last page rows missing")
	}
}

func TestHugePageNumberFallsBackToLastPage(t *testing.T) {
	fx := newUsersFixture(t, 25)

	code, _, _ := fx.post(t, fx.h.HandleUsersPage, "/users/page", url.Values{"page": {"9223372036854775807"}}, false)
	if code != http.StatusSeeOther {
		t.Fatalf("page post = %d", code)
	}
	if got := fx.state(t).Pagination.PageIndex; got != users.MaxPageIndex {
		t.Fatalf("page index = %d, want %d", got, users.MaxPageIndex)
	}

	for _, target := range []string{"http://example.com/users", "http://example.com/users?page=9223372036854775807"} {
		c, rec := newTestContext(http.MethodGet, target)
		fx.bind(c)
		if err := fx.h.HandleUsers(c); err != nil {
			t.Fatalf("HandleUsers(%s) error = %v", target, err)
		}
		body := rec.Body.String()
		if strings.Contains(body, fetchErrorMessage) {
			t.Fatalf("%s: huge page number produced the fetch error", target)
		}
		if got := fx.state(t).Pagination.PageIndex; got != 2 {
			t.Fatalf("%s: persisted page index = %d, want 2", target, got)
		}
		if !strings.Contains(body, "user21@lendsqr.com") {
			t.Fatalf("%s: last page rows missing", target)
		}
	}
}

func TestEmptyStateMessages(t *testing.T) {
	fx := newUsersFixture(t, 0)

	c, rec := newTestContext(http.MethodGet, "http://example.com/users")
	fx.bind(c)
	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), emptyMessage) {
		t.Fatalf("body missing empty state")
	}

	c, rec = newTestContext(http.MethodGet, "http://example.com/users?username=nobody")
	fx.bind(c)
	if err := fx.h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), emptyFilteredMessage) {
		t.Fatalf("body missing filtered empty state")
	}
}

func TestHandleUserShow(t *testing.T) {
	fx := newUsersFixture(t, 3)

	c, rec := newTestContext(http.MethodGet, "http://example.com/users/2")
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "2"}})
	fx.bind(c)
	c.Set(authn.ContextKeyPrincipal, auth.Principal{UserID: 1, Role: auth.RoleViewer})
	if err := fx.h.HandleUserShow(c); err != nil {
		t.Fatalf("HandleUserShow() error = %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Name 2") {
		t.Fatalf("show = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/users/2/status") {
		t.Fatalf("viewer must not see status actions")
	}

	c, rec = newTestContext(http.MethodGet, "http://example.com/users/99")
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "99"}})
	fx.bind(c)
	if err := fx.h.HandleUserShow(c); err != nil {
		t.Fatalf("HandleUserShow() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUserStatus(t *testing.T) {
	fx := newUsersFixture(t, 3)

	c, rec := newFormContext("http://example.com/users/2/status", url.Values{"status": {"blacklisted"}})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "2"}})
	fx.bind(c)
	if err := fx.h.HandleUserStatus(c); err != nil {
		t.Fatalf("HandleUserStatus() error = %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/users/2" {
		t.Fatalf("status post = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if fx.source.updated["2"] != users.StatusBlacklisted {
		t.Fatalf("updated = %v", fx.source.updated)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), flashToastCookieName) {
		t.Fatalf("missing flash toast cookie")
	}

	c, _ = newFormContext("http://example.com/users/2/status", url.Values{"status": {"archived"}})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "2"}})
	if err := fx.h.HandleUserStatus(c); !errors.Is(err, echo.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
}

func TestAPIUsers(t *testing.T) {
	fx := newUsersFixture(t, 12)

	c, rec := newTestContext(http.MethodGet, "http://example.com/api/users?page=2")
	if err := fx.h.HandleAPIUsers(c); err != nil {
		t.Fatalf("HandleAPIUsers() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var page users.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalItems != 12 || page.Page != 2 || page.PageCount != 2 || len(page.Data) != 2 {
		t.Fatalf("page = %+v", page)
	}

	c, rec = newTestContext(http.MethodGet, "http://example.com/api/users?email=bad")
	if err := fx.h.HandleAPIUsers(c); err != nil {
		t.Fatalf("HandleAPIUsers() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Invalid email format") {
		t.Fatalf("invalid filter = %d %s", rec.Code, rec.Body.String())
	}

	fx.source.listErr = fmt.Errorf("%w: boom", usersapi.ErrFetch)
	c, rec = newTestContext(http.MethodGet, "http://example.com/api/users")
	if err := fx.h.HandleAPIUsers(c); err != nil {
		t.Fatalf("HandleAPIUsers() error = %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestAPIUserNotFound(t *testing.T) {
	fx := newUsersFixture(t, 1)

	c, rec := newTestContext(http.MethodGet, "http://example.com/api/users/5")
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "5"}})
	if err := fx.h.HandleAPIUser(c); err != nil {
		t.Fatalf("HandleAPIUser() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{0: "0", 999: "999", 1000: "1,000", 2453: "2,453", 1234567: "1,234,567", -1200: "-1,200", 9223372036854775807: "9,223,372,036,854,775,807"}
	for in, want := range cases {
		if got := formatCount(in); got != want {
			t.Fatalf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}
