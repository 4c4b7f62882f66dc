package viewmodels

import (
	"github.com/usersdesk/usersdesk/internal/pagewindow"
	"github.com/usersdesk/usersdesk/internal/users"
)

type StatCard struct {
	Label string
	Value string
}

type UsersViewData struct {
	Layout       LayoutData
	Stats        []StatCard
	StatsPartial bool

	Filters     users.Filters
	FieldErrors users.FieldErrors
	FilterOpen  bool

	Rows     []users.User
	Sorting  users.Sort
	PageSize int

	// CurrentPage is 1-based and clamped to the page count for display.
	CurrentPage int
	PageCount   int
	Window      []pagewindow.Entry
	HasPrev     bool
	HasNext     bool

	TotalItems  int64
	ShowingFrom int
	ShowingTo   int

	HasUsers      bool
	EmptyStateMsg string
	FetchError    string
	CanManage     bool
}

type UserShowViewData struct {
	Layout    LayoutData
	User      users.Details
	CanManage bool
}
