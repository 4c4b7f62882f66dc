package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/usersdesk/usersdesk/internal/users"
)

type UserRow struct {
	ID           string
	Organization string
	Username     string
	Email        string
	PhoneNumber  string
	DateJoined   time.Time
	Status       string
	HasLoans     bool
	HasSavings   bool
	Profile      []byte
}

func (r UserRow) User() users.User {
	return users.User{
		ID:           r.ID,
		Organization: r.Organization,
		Username:     r.Username,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber,
		DateJoined:   r.DateJoined.UTC(),
		Status:       users.Status(r.Status),
	}
}

const userListColumns = `id, organization, username, email, phone_number, date_joined, status`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildUserFilter renders the WHERE clause for f and its positional args.
// Text fields match case-insensitively as substrings, date matches the UTC
// calendar day and status matches exactly.
func buildUserFilter(f users.Filters) (string, []any) {
	f = f.Normalize()
	var (
		clauses []string
		args    []any
	)
	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	contains := func(v string) string { return "%" + likeEscaper.Replace(v) + "%" }

	if v := f.Get(users.FieldOrganization); v != nil {
		add("organization ILIKE $%d", contains(*v))
	}
	if v := f.Get(users.FieldUsername); v != nil {
		add("username ILIKE $%d", contains(*v))
	}
	if v := f.Get(users.FieldEmail); v != nil {
		add("email ILIKE $%d", contains(*v))
	}
	if v := f.Get(users.FieldDate); v != nil {
		add("(date_joined AT TIME ZONE 'UTC')::date = $%d::date", *v)
	}
	if v := f.Get(users.FieldPhoneNumber); v != nil {
		add("phone_number ILIKE $%d", contains(*v))
	}
	if v := f.Get(users.FieldStatus); v != nil {
		add("status = $%d", strings.ToLower(*v))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

var sortColumns = map[users.SortColumn]string{
	users.SortOrganization: "organization",
	users.SortUsername:     "username",
	users.SortEmail:        "email",
	users.SortPhoneNumber:  "phone_number",
	users.SortDateJoined:   "date_joined",
	users.SortStatus:       "status",
}

// orderClause always ends with id so paging is stable across equal keys.
func orderClause(s users.Sort) string {
	col, ok := sortColumns[s.Column]
	if !ok {
		return "ORDER BY date_joined DESC, id"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id", col, dir)
}

func (q *Queries) CountUsers(ctx context.Context, f users.Filters) (int64, error) {
	where, args := buildUserFilter(f)
	row := q.db.QueryRow(ctx, "SELECT count(*) FROM users "+where, args...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type ListUsersParams struct {
	Filters users.Filters
	Sort    users.Sort
	Limit   int
	Offset  int
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]users.User, error) {
	where, args := buildUserFilter(arg.Filters)
	sql := fmt.Sprintf("SELECT %s FROM users %s %s LIMIT $%d OFFSET $%d",
		userListColumns, where, orderClause(arg.Sort), len(args)+1, len(args)+2)
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []users.User{}
	for rows.Next() {
		var r UserRow
		if err := rows.Scan(
			&r.ID,
			&r.Organization,
			&r.Username,
			&r.Email,
			&r.PhoneNumber,
			&r.DateJoined,
			&r.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, r.User())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUser = `-- name: GetUser :one
SELECT ` + userListColumns + `, has_loans, has_savings, profile
FROM users
WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	row := q.db.QueryRow(ctx, getUser, id)
	var r UserRow
	err := row.Scan(
		&r.ID,
		&r.Organization,
		&r.Username,
		&r.Email,
		&r.PhoneNumber,
		&r.DateJoined,
		&r.Status,
		&r.HasLoans,
		&r.HasSavings,
		&r.Profile,
	)
	return r, err
}

const updateUserStatus = `-- name: UpdateUserStatus :execrows
UPDATE users SET status = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) UpdateUserStatus(ctx context.Context, id string, status string) (int64, error) {
	tag, err := q.db.Exec(ctx, updateUserStatus, id, status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getUserStats = `-- name: GetUserStats :one
SELECT
  count(*),
  count(*) FILTER (WHERE status = 'active'),
  count(*) FILTER (WHERE has_loans),
  count(*) FILTER (WHERE has_savings)
FROM users
`

func (q *Queries) GetUserStats(ctx context.Context) (users.Stats, error) {
	row := q.db.QueryRow(ctx, getUserStats)
	var s users.Stats
	err := row.Scan(&s.Total, &s.Active, &s.WithLoans, &s.WithSavings)
	return s, err
}

const upsertUser = `-- name: UpsertUser :exec
INSERT INTO users (id, organization, username, email, phone_number, date_joined, status, has_loans, has_savings, profile)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  organization = EXCLUDED.organization,
  username = EXCLUDED.username,
  email = EXCLUDED.email,
  phone_number = EXCLUDED.phone_number,
  date_joined = EXCLUDED.date_joined,
  status = EXCLUDED.status,
  has_loans = EXCLUDED.has_loans,
  has_savings = EXCLUDED.has_savings,
  profile = EXCLUDED.profile,
  updated_at = now()
`

// UpsertUsers writes records in a single batch round trip.
func (q *Queries) UpsertUsers(ctx context.Context, records []users.Details) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, d := range records {
		profile, err := json.Marshal(d.Profile)
		if err != nil {
			return 0, fmt.Errorf("encode profile for user %s: %w", d.ID, err)
		}
		batch.Queue(upsertUser,
			d.ID,
			d.Organization,
			d.Username,
			d.Email,
			d.PhoneNumber,
			d.DateJoined,
			string(d.Status),
			d.Profile.HasLoans,
			d.Profile.HasSavings,
			profile,
		)
	}

	results := q.db.SendBatch(ctx, batch)
	defer results.Close()

	var n int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return n, err
		}
		n += tag.RowsAffected()
	}
	return n, nil
}
