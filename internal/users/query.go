package users

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the page size of a fresh table.
const DefaultPageSize = 10

// MaxPageIndex caps the 0-based page index accepted from requests and
// persisted state, keeping Offset far from integer overflow.
const MaxPageIndex = 1_000_000

// ClampPageIndex keeps i inside [0, MaxPageIndex].
func ClampPageIndex(i int) int {
	switch {
	case i < 0:
		return 0
	case i > MaxPageIndex:
		return MaxPageIndex
	default:
		return i
	}
}

// PageSizes are the page sizes offered by the page-size selector.
var PageSizes = []int{10, 20, 50, 100}

// IsPageSize reports whether n is one of PageSizes.
func IsPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// SortColumn names a sortable users-table column.
type SortColumn string

const (
	SortOrganization SortColumn = "organization"
	SortUsername     SortColumn = "username"
	SortEmail        SortColumn = "email"
	SortPhoneNumber  SortColumn = "phoneNumber"
	SortDateJoined   SortColumn = "dateJoined"
	SortStatus       SortColumn = "status"
)

// SortColumns lists the table columns in display order.
var SortColumns = []SortColumn{SortOrganization, SortUsername, SortEmail, SortPhoneNumber, SortDateJoined, SortStatus}

func ParseSortColumn(raw string) (SortColumn, bool) {
	raw = strings.TrimSpace(raw)
	for _, col := range SortColumns {
		if strings.EqualFold(raw, string(col)) {
			return col, true
		}
	}
	return "", false
}

// Header is the column header text.
func (c SortColumn) Header() string {
	switch c {
	case SortOrganization:
		return "Organization"
	case SortUsername:
		return "Username"
	case SortEmail:
		return "Email"
	case SortPhoneNumber:
		return "Phone Number"
	case SortDateJoined:
		return "Date Joined"
	case SortStatus:
		return "Status"
	default:
		return string(c)
	}
}

// Sort is the table sort order. The zero value means the source's default order.
type Sort struct {
	Column SortColumn `json:"column,omitempty"`
	Desc   bool       `json:"desc,omitempty"`
}

// IsZero reports whether no column is sorted.
func (s Sort) IsZero() bool {
	return s.Column == ""
}

// Direction is "asc" or "desc", or "" when unsorted.
func (s Sort) Direction() string {
	switch {
	case s.IsZero():
		return ""
	case s.Desc:
		return "desc"
	default:
		return "asc"
	}
}

// Query selects one page of users.
type Query struct {
	Filters   Filters
	PageIndex int
	PageSize  int
	Sort      Sort
}

// PageNumber is the 1-based page requested, at most MaxPageIndex+1.
func (q Query) PageNumber() int {
	return ClampPageIndex(q.PageIndex) + 1
}

// Limit is the page size, falling back to DefaultPageSize.
func (q Query) Limit() int {
	if q.PageSize < 1 {
		return DefaultPageSize
	}
	return q.PageSize
}

// Offset is the number of rows skipped before the page. It never goes
// negative, whatever PageIndex holds.
func (q Query) Offset() int {
	skipped, limit := q.PageNumber()-1, q.Limit()
	if skipped > 0 && limit > math.MaxInt/skipped {
		return math.MaxInt
	}
	return skipped * limit
}

// Values flattens the query into request parameters: every set filter by
// field name, then page (1-based), pageSize, and sortBy/sortDir when sorted.
func (q Query) Values() url.Values {
	values := url.Values{}
	for _, field := range Fields {
		if v := normalizeValue(q.Filters.Get(field)); v != nil {
			values.Set(string(field), *v)
		}
	}
	values.Set("page", strconv.Itoa(q.PageNumber()))
	values.Set("pageSize", strconv.Itoa(q.Limit()))
	if !q.Sort.IsZero() {
		values.Set("sortBy", string(q.Sort.Column))
		values.Set("sortDir", q.Sort.Direction())
	}
	return values
}

// Key is the canonical fetch key of the query. Two queries with the same key
// always select the same rows.
func (q Query) Key() string {
	return q.Values().Encode()
}

// ParseQuery reads a query from request parameters produced by Values.
// Invalid paging parameters fall back to defaults; invalid filters are
// reported through FieldErrors and left unset.
func ParseQuery(values url.Values) (Query, FieldErrors) {
	filters, errs := ParseFilterForm(values)
	q := Query{Filters: filters, PageSize: DefaultPageSize}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			q.PageIndex = ClampPageIndex(n - 1)
		} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
			q.PageIndex = MaxPageIndex
		}
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && IsPageSize(n) {
			q.PageSize = n
		}
	}
	if col, ok := ParseSortColumn(values.Get("sortBy")); ok {
		q.Sort = Sort{Column: col, Desc: strings.EqualFold(strings.TrimSpace(values.Get("sortDir")), "desc")}
	}
	return q, errs
}

// Page is one page of a list response.
type Page struct {
	Data       []User `json:"data"`
	TotalItems int64  `json:"totalItems"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	PageCount  int    `json:"pageCount"`
}

// NewPage assembles a Page for q from the rows and the total match count.
func NewPage(data []User, totalItems int64, q Query) Page {
	if data == nil {
		data = []User{}
	}
	limit := q.Limit()
	return Page{
		Data:       data,
		TotalItems: totalItems,
		Page:       q.PageNumber(),
		PageSize:   limit,
		PageCount:  PageCount(totalItems, limit),
	}
}

// PageCount is ceil(total/pageSize); zero when there are no rows.
func PageCount(totalItems int64, pageSize int) int {
	if totalItems <= 0 || pageSize < 1 {
		return 0
	}
	denom := int64(pageSize)
	return int((totalItems + denom - 1) / denom)
}
