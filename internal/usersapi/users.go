package usersapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/pagewindow"
	"github.com/usersdesk/usersdesk/internal/users"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type wireUser struct {
	ID           flexString     `json:"id"`
	Organization string         `json:"organization"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PhoneNumber  string         `json:"phoneNumber"`
	DateJoined   string         `json:"dateJoined"`
	Status       string         `json:"status"`
	Profile      *users.Profile `json:"profile,omitempty"`
}

type wirePage struct {
	Data       []wireUser `json:"data"`
	TotalItems float64    `json:"totalItems"`
	Page       float64    `json:"page"`
	PageSize   float64    `json:"pageSize"`
	PageCount  float64    `json:"pageCount"`
}

// maxSafeInteger is the largest integer a JSON number carries exactly.
const maxSafeInteger = 1 << 53

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", time.DateOnly}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable dateJoined %q", raw)
}

func (w wireUser) toUser() (users.User, error) {
	id := strings.TrimSpace(string(w.ID))
	if id == "" {
		return users.User{}, fmt.Errorf("user without id")
	}
	joined, err := parseDate(w.DateJoined)
	if err != nil {
		return users.User{}, err
	}
	status, ok := users.ParseStatus(w.Status)
	if !ok {
		status = users.Status(strings.ToLower(strings.TrimSpace(w.Status)))
	}
	return users.User{
		ID:           id,
		Organization: w.Organization,
		Username:     w.Username,
		Email:        w.Email,
		PhoneNumber:  w.PhoneNumber,
		DateJoined:   joined,
		Status:       status,
	}, nil
}

// decodePage converts a list response, rejecting counts that cannot describe
// a page window.
func decodePage(data []byte, q users.Query) (users.Page, error) {
	var w wirePage
	if err := json.Unmarshal(data, &w); err != nil {
		return users.Page{}, fmt.Errorf("%w: decode users page: %v", ErrFetch, err)
	}
	if err := pagewindow.Validate(w.PageCount, w.Page); err != nil {
		return users.Page{}, fmt.Errorf("%w: pageCount=%v page=%v: %v", ErrFetch, w.PageCount, w.Page, err)
	}
	if w.PageCount != math.Trunc(w.PageCount) || w.Page != math.Trunc(w.Page) {
		return users.Page{}, fmt.Errorf("%w: pageCount=%v page=%v not whole numbers", ErrFetch, w.PageCount, w.Page)
	}
	if w.TotalItems < 0 || w.TotalItems > maxSafeInteger || w.TotalItems != math.Trunc(w.TotalItems) {
		return users.Page{}, fmt.Errorf("%w: totalItems=%v out of range", ErrFetch, w.TotalItems)
	}

	rows := make([]users.User, 0, len(w.Data))
	for _, item := range w.Data {
		u, err := item.toUser()
		if err != nil {
			return users.Page{}, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		rows = append(rows, u)
	}

	page := users.NewPage(rows, int64(w.TotalItems), q)
	if w.PageCount > 0 {
		page.PageCount = int(w.PageCount)
	}
	return page, nil
}

func (c *Client) ListUsers(ctx context.Context, q users.Query) (users.Page, error) {
	key := "list:" + q.Key()
	if cached, ok := c.cache.Get(key); ok {
		metrics.UpstreamCacheTotal.WithLabelValues("hit").Inc()
		return cached.(users.Page), nil
	}
	metrics.UpstreamCacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	data, err := c.do(ctx, "list_users", http.MethodGet, "/users", q.Values(), nil)
	metrics.UsersListDuration.WithLabelValues("api").Observe(time.Since(start).Seconds())
	if err != nil {
		return users.Page{}, err
	}
	page, err := decodePage(data, q)
	if err != nil {
		return users.Page{}, err
	}
	c.cache.SetDefault(key, page)
	return page, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (users.Details, error) {
	id = strings.TrimSpace(id)
	key := "user:" + id
	if cached, ok := c.cache.Get(key); ok {
		metrics.UpstreamCacheTotal.WithLabelValues("hit").Inc()
		return cached.(users.Details), nil
	}
	metrics.UpstreamCacheTotal.WithLabelValues("miss").Inc()

	data, err := c.do(ctx, "get_user", http.MethodGet, "/users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		if isNotFound(err) {
			return users.Details{}, fmt.Errorf("user %s: %w", id, users.ErrNotFound)
		}
		return users.Details{}, err
	}

	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		return users.Details{}, fmt.Errorf("%w: decode user %s: %v", ErrFetch, id, err)
	}
	u, err := w.toUser()
	if err != nil {
		return users.Details{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	details := users.Details{User: u}
	if w.Profile != nil {
		details.Profile = *w.Profile
	}
	c.cache.SetDefault(key, details)
	return details, nil
}

// SetUserStatus patches the user and drops every cached response, since
// any cached list page may contain the changed row.
func (c *Client) SetUserStatus(ctx context.Context, id string, status users.Status) error {
	if _, ok := users.ParseStatus(string(status)); !ok {
		return fmt.Errorf("invalid status %q", status)
	}
	id = strings.TrimSpace(id)
	_, err := c.do(ctx, "set_user_status", http.MethodPatch, "/users/"+url.PathEscape(id), nil,
		map[string]string{"status": string(status)})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("user %s: %w", id, users.ErrNotFound)
		}
		return err
	}
	c.cache.Flush()
	return nil
}

// Stats derives the summary cards from list totals. The upstream API has no
// aggregate for loans and savings, so those are reported as partial.
func (c *Client) Stats(ctx context.Context) (users.Stats, error) {
	var total, active int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := c.ListUsers(gctx, users.Query{PageSize: 1})
		if err != nil {
			return err
		}
		total = page.TotalItems
		return nil
	})
	g.Go(func() error {
		page, err := c.ListUsers(gctx, users.Query{
			Filters:  users.Filters{Status: users.StringPtr(string(users.StatusActive))},
			PageSize: 1,
		})
		if err != nil {
			return err
		}
		active = page.TotalItems
		return nil
	})
	if err := g.Wait(); err != nil {
		return users.Stats{}, err
	}
	return users.Stats{Total: total, Active: active, Partial: true}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, users.ErrNotFound)
}
