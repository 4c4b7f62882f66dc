package users

import (
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// FieldErrors maps a filter field to the message shown next to it.
type FieldErrors map[Field]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e))
	for field := range e {
		keys = append(keys, string(field))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[Field(key)])
	}
	return strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when there are no field errors.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ParseFilterForm turns raw filter input into Filters. Blank values are
// dropped; values that fail validation are reported and left unset so they
// never reach the table state.
func ParseFilterForm(values url.Values) (Filters, FieldErrors) {
	var out Filters
	errs := FieldErrors{}
	for _, field := range Fields {
		raw := strings.TrimSpace(values.Get(string(field)))
		if raw == "" {
			continue
		}
		value, msg := validateField(field, raw)
		if msg != "" {
			errs[field] = msg
			continue
		}
		out = out.With(field, &value)
	}
	return out, errs
}

// ValidateFilters checks already-built filters against the same rules as
// ParseFilterForm.
func ValidateFilters(f Filters) FieldErrors {
	errs := FieldErrors{}
	for _, field := range f.Active() {
		if _, msg := validateField(field, f.Value(field)); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

func validateField(field Field, raw string) (string, string) {
	switch field {
	case FieldEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Address != raw || !strings.Contains(raw[strings.LastIndex(raw, "@")+1:], ".") {
			return "", "Invalid email format"
		}
		return raw, ""
	case FieldPhoneNumber:
		if !phonePattern.MatchString(raw) {
			return "", "Invalid phone number format"
		}
		return raw, ""
	case FieldDate:
		if !datePattern.MatchString(raw) {
			return "", "Invalid date format (use YYYY-MM-DD)"
		}
		if _, err := time.Parse(time.DateOnly, raw); err != nil {
			return "", "Invalid date format (use YYYY-MM-DD)"
		}
		return raw, ""
	case FieldStatus:
		status, ok := ParseStatus(raw)
		if !ok {
			return "", "Invalid status value"
		}
		return string(status), ""
	default:
		return raw, ""
	}
}
