package views

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/usersdesk/usersdesk/internal/users"
)

// UsersResultsID is the element swapped by htmx table actions.
const UsersResultsID = "users-results"

func FormatInt(v int) string {
	return strconv.Itoa(v)
}

func FormatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}

func QueryEscape(v string) string {
	return url.QueryEscape(v)
}

// UserURL is the details page of a user.
func UserURL(id string) string {
	return "/users/" + url.PathEscape(strings.TrimSpace(id))
}

// UsersListURL is a bookmarkable link to the users table for q.
func UsersListURL(q users.Query) string {
	values := q.Values()
	if values.Get("page") == "1" {
		values.Del("page")
	}
	if values.Get("pageSize") == strconv.Itoa(users.DefaultPageSize) {
		values.Del("pageSize")
	}
	if len(values) == 0 {
		return "/users"
	}
	return "/users?" + values.Encode()
}

// StatusBadgeClass maps a status to its badge style. Unknown upstream
// statuses get a neutral outline.
func StatusBadgeClass(status users.Status) string {
	switch status {
	case users.StatusActive, users.StatusInactive, users.StatusPending, users.StatusBlacklisted:
		return "badge status-" + string(status)
	default:
		return "badge-outline"
	}
}

// SortIndicator is the arrow rendered next to a sorted column header.
func SortIndicator(s users.Sort, col users.SortColumn) string {
	if s.Column != col {
		return ""
	}
	if s.Desc {
		return "↓"
	}
	return "↑"
}

// AriaSort is the aria-sort value of a column header.
func AriaSort(s users.Sort, col users.SortColumn) string {
	switch {
	case s.Column != col:
		return "none"
	case s.Desc:
		return "descending"
	default:
		return "ascending"
	}
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "—"
	}
	return v
}

func pageTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "usersdesk"
	}
	return title + " · usersdesk"
}

// csrfHeaders is the hx-headers value that makes htmx send the CSRF token on
// every boosted request.
func csrfHeaders(token string) string {
	b, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func isNavActive(activePath, href string) bool {
	return activePath == href || strings.HasPrefix(activePath, href+"/")
}

func filterInputID(field users.Field) string {
	return "filter-" + string(field)
}

func filterInputType(field users.Field) string {
	switch field {
	case users.FieldEmail:
		return "email"
	case users.FieldDate:
		return "date"
	case users.FieldPhoneNumber:
		return "tel"
	default:
		return "text"
	}
}

func displayName(u users.Details) string {
	if u.Profile.Personal.FullName != "" {
		return u.Profile.Personal.FullName
	}
	return u.Username
}

func bankLine(p users.Profile) string {
	return orDash(p.BankAccount) + "/" + orDash(p.BankName)
}

type detailItem struct {
	Label string
	Value string
}

type detailSection struct {
	Title string
	Items []detailItem
}

// detailSections lays out the details page cards in display order. There is
// one Guarantor card per guarantor.
func detailSections(u users.Details) []detailSection {
	p := u.Profile
	sections := []detailSection{
		{Title: "Personal Information", Items: []detailItem{
			{"Full Name", p.Personal.FullName},
			{"Phone Number", firstNonEmpty(p.Personal.PhoneNumber, u.PhoneNumber)},
			{"Email Address", firstNonEmpty(p.Personal.EmailAddress, u.Email)},
			{"BVN", p.Personal.BVN},
			{"Gender", p.Personal.Gender},
			{"Marital Status", p.Personal.MaritalStatus},
			{"Children", p.Personal.Children},
			{"Type of Residence", p.Personal.TypeOfResidence},
		}},
		{Title: "Education and Employment", Items: []detailItem{
			{"Level of Education", p.Education.LevelOfEducation},
			{"Employment Status", p.Education.EmploymentStatus},
			{"Sector of Employment", p.Education.SectorOfEmployment},
			{"Duration of Employment", p.Education.DurationOfEmployment},
			{"Office Email", p.Education.OfficeEmail},
			{"Monthly Income", p.Education.MonthlyIncome},
			{"Loan Repayment", p.Education.LoanRepayment},
		}},
		{Title: "Socials", Items: []detailItem{
			{"Twitter", p.Socials.Twitter},
			{"Facebook", p.Socials.Facebook},
			{"Instagram", p.Socials.Instagram},
		}},
	}
	for _, g := range p.Guarantors {
		sections = append(sections, detailSection{Title: "Guarantor", Items: []detailItem{
			{"Full Name", g.FullName},
			{"Phone Number", g.PhoneNumber},
			{"Email Address", g.EmailAddress},
			{"Relationship", g.Relationship},
		}})
	}
	return append(sections, detailSection{Title: "Account", Items: []detailItem{
		{"Organization", u.Organization},
		{"Username", u.Username},
		{"Date Joined", users.FormatDate(u.DateJoined)},
		{"Has Loans", yesNo(p.HasLoans)},
		{"Has Savings", yesNo(p.HasSavings)},
	}})
}

func tierStars(tier int) string {
	tier = min(max(tier, 0), 3)
	var b strings.Builder
	for i := 1; i <= 3; i++ {
		if i <= tier {
			b.WriteString("★")
		} else {
			b.WriteString("☆")
		}
	}
	return b.String() + " (" + strconv.Itoa(tier) + ")"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
