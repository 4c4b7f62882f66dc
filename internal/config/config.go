package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceDB  = "db"
	SourceAPI = "api"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultSessionLifetime    = 12 * time.Hour
	defaultUsersAPITimeout    = 10 * time.Second
	defaultUsersAPICacheTTL   = 30 * time.Second
	defaultUsersAPIMaxRetries = 3
	defaultLoginRatePerMinute = 10
	defaultSeedCount          = 120
)

type Config struct {
	DatabaseURL        string
	HTTPAddr           string
	MetricsAddr        string
	AuthCookieSecure   bool
	SessionLifetime    time.Duration
	UsersSource        string
	UsersAPIBaseURL    string
	UsersAPIKey        string
	UsersAPITimeout    time.Duration
	UsersAPICacheTTL   time.Duration
	UsersAPIMaxRetries int
	LoginRatePerMinute int
	SeedCount          int
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPAddr:           getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:        strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		AuthCookieSecure:   getenvBoolDefault("AUTH_COOKIE_SECURE", false),
		SessionLifetime:    getenvDurationDefault("SESSION_LIFETIME", defaultSessionLifetime),
		UsersSource:        strings.ToLower(strings.TrimSpace(getenvDefault("USERS_SOURCE", SourceDB))),
		UsersAPIBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("USERS_API_BASE_URL")), "/"),
		UsersAPIKey:        strings.TrimSpace(os.Getenv("USERS_API_KEY")),
		UsersAPITimeout:    getenvDurationDefault("USERS_API_TIMEOUT", defaultUsersAPITimeout),
		UsersAPICacheTTL:   getenvDurationDefault("USERS_API_CACHE_TTL", defaultUsersAPICacheTTL),
		UsersAPIMaxRetries: getenvIntDefault("USERS_API_MAX_RETRIES", defaultUsersAPIMaxRetries),
		LoginRatePerMinute: getenvIntDefault("LOGIN_RATE_PER_MINUTE", defaultLoginRatePerMinute),
		SeedCount:          getenvIntDefault("SEED_COUNT", defaultSeedCount),
	}

	switch cfg.UsersSource {
	case SourceDB:
	case SourceAPI:
		if cfg.UsersAPIBaseURL == "" {
			return cfg, errors.New("USERS_API_BASE_URL is required when USERS_SOURCE=api")
		}
		u, err := url.Parse(cfg.UsersAPIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return cfg, fmt.Errorf("USERS_API_BASE_URL must be an absolute http(s) URL, got %q", cfg.UsersAPIBaseURL)
		}
	default:
		return cfg, fmt.Errorf("USERS_SOURCE must be one of: %s, %s", SourceDB, SourceAPI)
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true":
		return true
	case "0", "false":
		return false
	default:
		return def
	}
}
