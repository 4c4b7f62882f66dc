package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usersdesk/usersdesk/internal/users"
)

func TestBuildUserFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		filters   users.Filters
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty",
			filters:   users.Filters{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "blank values ignored",
			filters:   users.Filters{Username: users.StringPtr("  ")},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name: "all fields in form order",
			filters: users.Filters{
				Status:       users.StringPtr("Active"),
				Organization: users.StringPtr("Lendsqr"),
				Username:     users.StringPtr("grace"),
				Email:        users.StringPtr("grace@lendsqr.com"),
				Date:         users.StringPtr("2020-05-15"),
				PhoneNumber:  users.StringPtr("0803"),
			},
			wantWhere: "WHERE organization ILIKE $1 AND username ILIKE $2 AND email ILIKE $3" +
				" AND (date_joined AT TIME ZONE 'UTC')::date = $4::date AND phone_number ILIKE $5 AND status = $6",
			wantArgs: []any{"%Lendsqr%", "%grace%", "%grace@lendsqr.com%", "2020-05-15", "%0803%", "active"},
		},
		{
			name:      "like wildcards escaped",
			filters:   users.Filters{Username: users.StringPtr(`a_b%c\d`)},
			wantWhere: "WHERE username ILIKE $1",
			wantArgs:  []any{`%a\_b\%c\\d%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			where, args := buildUserFilter(tt.filters)
			if where != tt.wantWhere {
				t.Fatalf("where = %q, want %q", where, tt.wantWhere)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Fatalf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrderClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sort users.Sort
		want string
	}{
		{sort: users.Sort{}, want: "ORDER BY date_joined DESC, id"},
		{sort: users.Sort{Column: users.SortUsername}, want: "ORDER BY username ASC, id"},
		{sort: users.Sort{Column: users.SortPhoneNumber, Desc: true}, want: "ORDER BY phone_number DESC, id"},
		{sort: users.Sort{Column: "id; DROP TABLE users"}, want: "ORDER BY date_joined DESC, id"},
	}
	for _, tt := range tests {
		if got := orderClause(tt.sort); got != tt.want {
			t.Fatalf("orderClause(%+v) = %q, want %q", tt.sort, got, tt.want)
		}
	}
}
