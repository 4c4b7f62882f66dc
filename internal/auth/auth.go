// Package auth holds the dashboard's operator identities: principals,
// password hashing and login form validation.
package auth

import (
	"errors"
	"strings"
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"

	MethodPassword = "password"
)

// ErrInvalidCredentials is returned for an unknown email, a wrong password
// or a disabled account. Callers must not tell these apart in responses.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Principal struct {
	UserID int64
	Email  string
	Role   string // "admin" or "viewer"
	Method string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageUsers reports whether the principal may change user status.
func (p Principal) CanManageUsers() bool {
	return p.IsAdmin()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidRole reports whether role is a known operator role.
func IsValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, RoleViewer:
		return true
	default:
		return false
	}
}
