// Package users holds the user-register domain: records, filter criteria,
// list queries and the validation boundary for filter input.
package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle state of a user record.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusPending     Status = "pending"
	StatusBlacklisted Status = "blacklisted"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusPending, StatusBlacklisted}

// ParseStatus normalizes raw into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Label is the capitalized form shown in status badges.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ErrNotFound is returned by a Source when a user id does not exist.
var ErrNotFound = errors.New("users: not found")

// User is one row of the users table.
type User struct {
	ID           string    `json:"id"`
	Organization string    `json:"organization"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	DateJoined   time.Time `json:"dateJoined"`
	Status       Status    `json:"status"`
}

// PersonalInfo is the "Personal Information" section of the details view.
type PersonalInfo struct {
	FullName        string `json:"fullName"`
	PhoneNumber     string `json:"phoneNumber"`
	EmailAddress    string `json:"emailAddress"`
	BVN             string `json:"bvn"`
	Gender          string `json:"gender"`
	MaritalStatus   string `json:"maritalStatus"`
	Children        string `json:"children"`
	TypeOfResidence string `json:"typeOfResidence"`
}

type Education struct {
	LevelOfEducation     string `json:"levelOfEducation"`
	EmploymentStatus     string `json:"employmentStatus"`
	SectorOfEmployment   string `json:"sectorOfEmployment"`
	DurationOfEmployment string `json:"durationOfEmployment"`
	OfficeEmail          string `json:"officeEmail"`
	MonthlyIncome        string `json:"monthlyIncome"`
	LoanRepayment        string `json:"loanRepayment"`
}

type Socials struct {
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
}

type Guarantor struct {
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	EmailAddress string `json:"emailAddress"`
	Relationship string `json:"relationship"`
}

// Profile is the extended record shown on the user details page.
type Profile struct {
	Personal       PersonalInfo `json:"personalInfo"`
	Education      Education    `json:"education"`
	Socials        Socials      `json:"socials"`
	Guarantors     []Guarantor  `json:"guarantors"`
	Tier           int          `json:"tier"`
	BankAccount    string       `json:"bankAccount"`
	BankName       string       `json:"bankName"`
	AccountBalance string       `json:"accountBalance"`
	HasLoans       bool         `json:"hasLoans"`
	HasSavings     bool         `json:"hasSavings"`
}

// Details is a user together with its profile.
type Details struct {
	User
	Profile Profile `json:"profile"`
}

// Stats backs the summary cards above the users table.
type Stats struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	WithLoans   int64 `json:"withLoans"`
	WithSavings int64 `json:"withSavings"`
	// Partial is set when the source cannot report loan and savings counts.
	Partial bool `json:"partial"`
}

// Source is where the dashboard reads user records from.
type Source interface {
	ListUsers(ctx context.Context, q Query) (Page, error)
	GetUser(ctx context.Context, id string) (Details, error)
	SetUserStatus(ctx context.Context, id string, status Status) error
	Stats(ctx context.Context) (Stats, error)
}
