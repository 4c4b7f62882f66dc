// Package usersapi reads the users register from an upstream REST API.
//
// Every request carries the API key as the "key" query parameter. Reads are
// retried with exponential backoff behind a circuit breaker, and list pages
// are cached by the query's fetch key so a response is only ever reused for
// the exact filters, page and sort it was fetched for.
package usersapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"

	"github.com/usersdesk/usersdesk/internal/logging"
	"github.com/usersdesk/usersdesk/internal/metrics"
	"github.com/usersdesk/usersdesk/internal/users"
)

// ErrFetch reports a network failure, a non-2xx status or a malformed body.
var ErrFetch = errors.New("usersapi: fetch failed")

const (
	defaultTimeout    = 10 * time.Second
	defaultCacheTTL   = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryWait  = 200 * time.Millisecond

	maxResponseBytes = 8 << 20
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
	// RetryWait is the first backoff interval.
	RetryWait  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements users.Source over HTTP.
type Client struct {
	base       *url.URL
	apiKey     string
	http       *http.Client
	cache      *cache.Cache
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryWait  time.Duration
	log        *slog.Logger
}

var _ users.Source = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("usersapi: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	c := &Client{
		base:       base,
		apiKey:     cfg.APIKey,
		http:       httpClient,
		cache:      cache.New(ttl, 2*ttl),
		maxRetries: retries,
		retryWait:  wait,
		log:        logging.Component(cfg.Logger, "usersapi"),
	}
	c.breaker = newBreaker(base.Host, c.log)
	return c, nil
}

func newBreaker(name string, log *slog.Logger) *gobreaker.CircuitBreaker {
	circuit := "usersapi:" + name
	metrics.UpstreamCircuitState.WithLabelValues(circuit).Set(0)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        circuit,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, users.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.UpstreamCircuitState.WithLabelValues(name).Set(float64(to))
		},
	})
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// do performs one logical request with retries. The response body is
// returned fully read; a 404 maps to users.ErrNotFound.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = b
	}

	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + path
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	target.RawQuery = query.Encode()

	attempt := func() ([]byte, error) {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.roundTrip(ctx, method, target.String(), payload)
		})
		if err != nil {
			var se *statusError
			switch {
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return nil, backoff.Permanent(err)
			case errors.Is(err, users.ErrNotFound):
				return nil, backoff.Permanent(err)
			case errors.As(err, &se) && !retryable(se.code):
				return nil, backoff.Permanent(err)
			case ctx.Err() != nil:
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res.([]byte), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait

	start := time.Now()
	data, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries)),
	)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, users.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()

	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, err
		}
		c.log.Warn("upstream request failed",
			"op", op,
			"method", method,
			"path", path,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrFetch, method, path, err)
	}
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, users.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}
	return data, nil
}
