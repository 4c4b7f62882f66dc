package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "usersdesk"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests by route, method and outcome.",
	}, []string{"route", "method", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Time taken to serve an HTTP request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Users Source Metrics
	UsersListDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "users_list_duration_seconds",
		Help:      "Time taken to fetch one page of users from the configured source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Count of upstream users API calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	UpstreamCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_cache_total",
		Help:      "Upstream response cache lookups.",
	}, []string{"result"})

	UpstreamCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_circuit_state",
		Help:      "Circuit breaker state of the upstream users API (0 closed, 1 half-open, 2 open).",
	}, []string{"circuit"})

	// Table State Metrics
	TableActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "table_actions_total",
		Help:      "Users table state changes by action.",
	}, []string{"action"})

	// Auth Metrics
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	UserStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_status_changes_total",
		Help:      "User status changes made from the dashboard.",
	}, []string{"status"})
)
