package auth

import (
	"net/mail"
	"strings"
)

// MinPasswordLength is the shortest password the login form accepts.
const MinPasswordLength = 6

// LoginErrors holds per-field messages for the login form.
type LoginErrors struct {
	Email    string
	Password string
}

func (e LoginErrors) Empty() bool {
	return e.Email == "" && e.Password == ""
}

// ValidateLogin checks the shape of login input before any lookup happens.
func ValidateLogin(email, password string) LoginErrors {
	var errs LoginErrors

	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs.Email = "Email is required"
	case !isEmailAddress(email):
		errs.Email = "Invalid email format"
	}

	switch {
	case password == "":
		errs.Password = "Password is required"
	case len(password) < MinPasswordLength:
		errs.Password = "Password must be at least 6 characters"
	case len(password) > MaxPasswordLength:
		errs.Password = "Password is too long"
	}
	return errs
}

func isEmailAddress(raw string) bool {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return false
	}
	at := strings.LastIndex(raw, "@")
	return at > 0 && strings.Contains(raw[at+1:], ".")
}
