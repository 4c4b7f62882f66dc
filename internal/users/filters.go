package users

import "strings"

// Field names a filterable column. The string value is also the query
// parameter name used on the wire.
type Field string

const (
	FieldOrganization Field = "organization"
	FieldUsername     Field = "username"
	FieldEmail        Field = "email"
	FieldDate         Field = "date"
	FieldPhoneNumber  Field = "phoneNumber"
	FieldStatus       Field = "status"
)

// Fields lists the filter fields in form order.
var Fields = []Field{FieldOrganization, FieldUsername, FieldEmail, FieldDate, FieldPhoneNumber, FieldStatus}

// ParseField resolves a filter field name.
func ParseField(raw string) (Field, bool) {
	raw = strings.TrimSpace(raw)
	for _, f := range Fields {
		if strings.EqualFold(raw, string(f)) {
			return f, true
		}
	}
	return "", false
}

// Label is the form label for the field.
func (f Field) Label() string {
	switch f {
	case FieldOrganization:
		return "Organization"
	case FieldUsername:
		return "Username"
	case FieldEmail:
		return "Email"
	case FieldDate:
		return "Date"
	case FieldPhoneNumber:
		return "Phone Number"
	case FieldStatus:
		return "Status"
	default:
		return string(f)
	}
}

// Filters is the set of optional constraints narrowing the users list.
// A nil field means "no constraint"; empty strings are never stored.
type Filters struct {
	Organization *string `json:"organization,omitempty"`
	Username     *string `json:"username,omitempty"`
	Email        *string `json:"email,omitempty"`
	Date         *string `json:"date,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	Status       *string `json:"status,omitempty"`
}

func (f *Filters) slot(field Field) **string {
	switch field {
	case FieldOrganization:
		return &f.Organization
	case FieldUsername:
		return &f.Username
	case FieldEmail:
		return &f.Email
	case FieldDate:
		return &f.Date
	case FieldPhoneNumber:
		return &f.PhoneNumber
	case FieldStatus:
		return &f.Status
	default:
		return nil
	}
}

// Get returns the value of field, or nil when unset.
func (f Filters) Get(field Field) *string {
	slot := f.slot(field)
	if slot == nil || *slot == nil {
		return nil
	}
	v := **slot
	return &v
}

// Value returns the value of field, or "" when unset.
func (f Filters) Value(field Field) string {
	if v := f.Get(field); v != nil {
		return *v
	}
	return ""
}

// With returns a copy of f with field set to value. A nil or blank value
// clears the field. Unknown fields leave f unchanged.
func (f Filters) With(field Field, value *string) Filters {
	out := f.Clone()
	slot := out.slot(field)
	if slot == nil {
		return out
	}
	*slot = normalizeValue(value)
	return out
}

// Clone returns a deep copy so callers never share pointers with a store.
func (f Filters) Clone() Filters {
	var out Filters
	for _, field := range Fields {
		if v := f.Get(field); v != nil {
			*out.slot(field) = v
		}
	}
	return out
}

// Normalize drops blank values, making "" equivalent to absent.
func (f Filters) Normalize() Filters {
	var out Filters
	for _, field := range Fields {
		*out.slot(field) = normalizeValue(f.Get(field))
	}
	return out
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	for _, field := range Fields {
		if normalizeValue(f.Get(field)) != nil {
			return false
		}
	}
	return true
}

// Active lists the set fields in form order.
func (f Filters) Active() []Field {
	var out []Field
	for _, field := range Fields {
		if normalizeValue(f.Get(field)) != nil {
			out = append(out, field)
		}
	}
	return out
}

// Equal compares two filter sets by value.
func (f Filters) Equal(other Filters) bool {
	for _, field := range Fields {
		a, b := normalizeValue(f.Get(field)), normalizeValue(other.Get(field))
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && *a != *b {
			return false
		}
	}
	return true
}

func normalizeValue(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StringPtr is a convenience for building filter values.
func StringPtr(s string) *string {
	return &s
}
