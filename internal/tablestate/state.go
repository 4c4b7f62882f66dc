// Package tablestate holds the filter, pagination and sort state of the
// users table and the reset rules that tie them together.
package tablestate

import (
	"encoding/json"
	"fmt"

	"github.com/usersdesk/usersdesk/internal/users"
)

// Pagination is the 0-based page index and the page size.
type Pagination struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// InitialPagination is the pagination of a fresh table.
func InitialPagination() Pagination {
	return Pagination{PageIndex: 0, PageSize: users.DefaultPageSize}
}

// State is a point-in-time copy of the table state.
type State struct {
	Filters    users.Filters `json:"filters"`
	Pagination Pagination    `json:"pagination"`
	Sorting    users.Sort    `json:"sorting"`
}

// Initial returns empty filters, the initial pagination and no sorting.
func Initial() State {
	return State{Pagination: InitialPagination()}
}

// Query converts the state into a list query.
func (s State) Query() users.Query {
	return users.Query{
		Filters:   s.Filters.Normalize(),
		PageIndex: s.Pagination.PageIndex,
		PageSize:  s.Pagination.PageSize,
		Sort:      s.Sorting,
	}
}

// FetchKey is the canonical key for the page this state selects. States
// with equal keys always fetch the same rows.
func (s State) FetchKey() string {
	return s.Query().Key()
}

func (s State) clone() State {
	s.Filters = s.Filters.Clone()
	return s
}

// Encode serializes the state for persistence in the session.
func Encode(s State) ([]byte, error) {
	return json.Marshal(s)
}

// Decode restores a persisted state. Filter values that no longer validate
// are dropped and an unsupported page size falls back to the default, so a
// stale session can never put the table into a state the UI cannot reach.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return Initial(), fmt.Errorf("decode table state: %w", err)
	}

	s.Filters = s.Filters.Normalize()
	for field := range users.ValidateFilters(s.Filters) {
		s.Filters = s.Filters.With(field, nil)
	}
	if !users.IsPageSize(s.Pagination.PageSize) {
		s.Pagination.PageSize = users.DefaultPageSize
	}
	s.Pagination.PageIndex = users.ClampPageIndex(s.Pagination.PageIndex)
	if _, ok := users.ParseSortColumn(string(s.Sorting.Column)); !ok {
		s.Sorting = users.Sort{}
	}
	return s, nil
}
