package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/usersdesk/usersdesk/internal/http/viewmodels"
	"github.com/usersdesk/usersdesk/internal/users"
)

func newTestContext(method, target string) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func newFormContext(target string, form url.Values) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func markHTMX(c *echo.Context, target string) {
	c.Request().Header.Set("HX-Request", "true")
	if target != "" {
		c.Request().Header.Set("HX-Target", target)
	}
}

func parseVaryHeader(value string) map[string]int {
	parts := strings.Split(value, ",")
	out := make(map[string]int, len(parts))
	for _, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			continue
		}
		out[token]++
	}
	return out
}

func TestAddVary(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "http://example.com/")
	c.Response().Header().Set(echo.HeaderVary, "Accept-Encoding")

	addVary(c, "HX-Request", "hx-target", "Accept-Encoding")

	got := parseVaryHeader(c.Response().Header().Get(echo.HeaderVary))
	if got["accept-encoding"] != 1 {
		t.Fatalf("Vary missing accept-encoding: %v", got)
	}
	if got["hx-request"] != 1 {
		t.Fatalf("Vary missing hx-request: %v", got)
	}
	if got["hx-target"] != 1 {
		t.Fatalf("Vary missing hx-target: %v", got)
	}
}

func TestAddVaryPreservesWildcard(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "http://example.com/")
	c.Response().Header().Set(echo.HeaderVary, "*")

	addVary(c, "HX-Request")

	if got := c.Response().Header().Get(echo.HeaderVary); got != "*" {
		t.Fatalf("Vary = %q, want *", got)
	}
}

func TestIsHXTargetRequiresHTMXRequest(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "http://example.com/users/page")
	c.Request().Header.Set("HX-Target", "users-results")
	if isHXTarget(c, "users-results") {
		t.Fatalf("isHXTarget without HX-Request should be false")
	}

	markHTMX(c, "Users-Results")
	if !isHXTarget(c, "users-results") {
		t.Fatalf("isHXTarget should match case-insensitively")
	}
	if isHXTarget(c, "content") {
		t.Fatalf("isHXTarget matched the wrong target")
	}
}

func TestPaginationHelpers(t *testing.T) {
	t.Parallel()

	if idx, ok := parsePageValue(" 3 "); !ok || idx != 2 {
		t.Fatalf("parsePageValue(3) = %d, %v", idx, ok)
	}
	if idx, ok := parsePageValue("9223372036854775807"); !ok || idx != users.MaxPageIndex {
		t.Fatalf("parsePageValue(MaxInt) = %d, %v", idx, ok)
	}
	for _, raw := range []string{"", "0", "-1", "abc", "1.5", "99999999999999999999999"} {
		if _, ok := parsePageValue(raw); ok {
			t.Fatalf("parsePageValue(%q) should fail", raw)
		}
	}

	if got := clampPage(9, 3); got != 3 {
		t.Fatalf("clampPage(9,3) = %d", got)
	}
	if got := clampPage(0, 3); got != 1 {
		t.Fatalf("clampPage(0,3) = %d", got)
	}
	if got := clampPage(4, 0); got != 1 {
		t.Fatalf("clampPage(4,0) = %d", got)
	}

	if from, to := showingRange(25, 20, 5); from != 21 || to != 25 {
		t.Fatalf("showingRange = %d-%d", from, to)
	}
	if from, to := showingRange(0, 0, 0); from != 0 || to != 0 {
		t.Fatalf("showingRange(empty) = %d-%d", from, to)
	}
}

func TestFlashToastRoundTrip(t *testing.T) {
	t.Parallel()

	value, ok := encodeToast(viewmodels.ToastViewData{Category: "SUCCESS", Title: " Saved "})
	if !ok {
		t.Fatalf("encodeToast failed")
	}
	toast, ok := decodeToast(value)
	if !ok || toast.Category != "success" || toast.Title != "Saved" {
		t.Fatalf("decodeToast = %+v, %v", toast, ok)
	}

	if _, ok := encodeToast(viewmodels.ToastViewData{Category: "bogus"}); ok {
		t.Fatalf("empty toast should not encode")
	}
	if _, ok := decodeToast("%%%"); ok {
		t.Fatalf("garbage cookie should not decode")
	}
	if got := normalizeToastCategory("bogus"); got != "info" {
		t.Fatalf("normalizeToastCategory = %q", got)
	}
}
