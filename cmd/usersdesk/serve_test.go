package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/usersdesk/usersdesk/internal/config"
	"github.com/usersdesk/usersdesk/internal/usersapi"
)

func TestBuildUsersSourceAPI(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		UsersSource:     config.SourceAPI,
		UsersAPIBaseURL: "https://users.example.com/v1",
		UsersAPIKey:     "k",
	}
	src, err := buildUsersSource(cfg, nil, nil)
	if err != nil {
		t.Fatalf("buildUsersSource: %v", err)
	}
	if _, ok := src.(*usersapi.Client); !ok {
		t.Fatalf("source = %T, want *usersapi.Client", src)
	}
}

func TestBuildUsersSourceRejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := buildUsersSource(config.Config{UsersSource: config.SourceDB}, nil, nil); err == nil {
		t.Fatalf("db source without a pool should fail")
	}
	if _, err := buildUsersSource(config.Config{UsersSource: "ldap"}, nil, nil); err == nil {
		t.Fatalf("unknown source should fail")
	}
	if _, err := buildUsersSource(config.Config{UsersSource: config.SourceAPI, UsersAPIBaseURL: "not a url"}, nil, nil); err == nil {
		t.Fatalf("invalid api base url should fail")
	}
}

func TestNewSessionManagerCookie(t *testing.T) {
	t.Parallel()

	sm := newSessionManager(config.Config{SessionLifetime: 2 * time.Hour, AuthCookieSecure: true}, nil)
	if sm.Lifetime != 2*time.Hour {
		t.Fatalf("Lifetime = %v", sm.Lifetime)
	}
	if sm.Cookie.Name != sessionCookieName || !sm.Cookie.HttpOnly || !sm.Cookie.Secure {
		t.Fatalf("cookie = %+v", sm.Cookie)
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite = %v", sm.Cookie.SameSite)
	}
}
