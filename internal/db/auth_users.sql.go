package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type AuthUser struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	LastLoginAt  pgtype.Timestamptz
	LastLoginIp  string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

const authUserColumns = `id, email, password_hash, role, is_active, last_login_at, last_login_ip, created_at, updated_at`

func scanAuthUser(row interface{ Scan(...any) error }) (AuthUser, error) {
	var i AuthUser
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.PasswordHash,
		&i.Role,
		&i.IsActive,
		&i.LastLoginAt,
		&i.LastLoginIp,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countAuthUsers = `-- name: CountAuthUsers :one
SELECT count(*) FROM auth_users
`

func (q *Queries) CountAuthUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countAuthUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countAuthAdmins = `-- name: CountAuthAdmins :one
SELECT count(*) FROM auth_users WHERE role = 'admin' AND is_active
`

func (q *Queries) CountAuthAdmins(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countAuthAdmins)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getAuthUser = `-- name: GetAuthUser :one
SELECT ` + authUserColumns + ` FROM auth_users WHERE id = $1
`

func (q *Queries) GetAuthUser(ctx context.Context, id int64) (AuthUser, error) {
	return scanAuthUser(q.db.QueryRow(ctx, getAuthUser, id))
}

const getAuthUserByEmail = `-- name: GetAuthUserByEmail :one
SELECT ` + authUserColumns + ` FROM auth_users WHERE email = $1
`

func (q *Queries) GetAuthUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	return scanAuthUser(q.db.QueryRow(ctx, getAuthUserByEmail, email))
}

const createAuthUser = `-- name: CreateAuthUser :one
INSERT INTO auth_users (email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4)
RETURNING ` + authUserColumns + `
`

type CreateAuthUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

func (q *Queries) CreateAuthUser(ctx context.Context, arg CreateAuthUserParams) (AuthUser, error) {
	row := q.db.QueryRow(ctx, createAuthUser,
		arg.Email,
		arg.PasswordHash,
		arg.Role,
		arg.IsActive,
	)
	return scanAuthUser(row)
}

const updateAuthUserLoginMeta = `-- name: UpdateAuthUserLoginMeta :exec
UPDATE auth_users
SET last_login_at = $2, last_login_ip = $3, updated_at = now()
WHERE id = $1
`

type UpdateAuthUserLoginMetaParams struct {
	ID          int64
	LastLoginAt pgtype.Timestamptz
	LastLoginIp string
}

func (q *Queries) UpdateAuthUserLoginMeta(ctx context.Context, arg UpdateAuthUserLoginMetaParams) error {
	_, err := q.db.Exec(ctx, updateAuthUserLoginMeta, arg.ID, arg.LastLoginAt, arg.LastLoginIp)
	return err
}
