package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
)

const accountCols = `id, username, pwd_hash, email, birthday, favorites, token_version, created_at, updated_at`

// UserRepo implements AccountRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs an account repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PwdHash, &a.Email, &a.Birthday,
		&a.Favorites, &a.TokenVersion, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if a.Favorites == nil {
		a.Favorites = []string{}
	}
	return &a, nil
}

// queryAccount runs a single-row statement returning accountCols.
func (r *UserRepo) queryAccount(ctx context.Context, q string, args ...any) (*model.Account, error) {
	var a *model.Account
	err := r.db.do(ctx, func(ctx context.Context) error {
		var err error
		a, err = scanAccount(r.db.Pool.QueryRow(ctx, q, args...))
		return err
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// Create inserts a new account. The UNIQUE(username) constraint is the
// authoritative duplicate guard: a conflict yields no row.
func (r *UserRepo) Create(ctx context.Context, n *model.NewAccount) (*model.Account, error) {
	const q = `
INSERT INTO users (id, username, pwd_hash, email, birthday)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO NOTHING
RETURNING ` + accountCols
	a, err := r.queryAccount(ctx, q, n.ID, n.Username, n.PwdHash, n.Email, n.Birthday)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrAlreadyExists
	}
	return a, err
}

// GetByUsername selects an account by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM users WHERE username = $1`
	return r.queryAccount(ctx, q, username)
}

// UpdateProfile patches non-nil columns; a new password hash bumps token_version.
func (r *UserRepo) UpdateProfile(ctx context.Context, username string, p model.ProfilePatch) (*model.Account, error) {
	const q = `
UPDATE users
SET pwd_hash = COALESCE($2::text, pwd_hash),
    email = COALESCE($3::text, email),
    birthday = COALESCE($4::date, birthday),
    token_version = token_version + CASE WHEN $2::text IS NULL THEN 0 ELSE 1 END,
    updated_at = now()
WHERE username = $1
RETURNING ` + accountCols
	return r.queryAccount(ctx, q, username, p.PwdHash, p.Email, p.Birthday)
}

// Delete removes the account row; favorites live on the row and go with it.
func (r *UserRepo) Delete(ctx context.Context, username string) error {
	const q = `DELETE FROM users WHERE username = $1`
	var affected int64
	err := r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, username)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return mapErr(err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddFavorite appends movieID unless already present. The CASE is re-evaluated
// against the latest row version under concurrent updates.
func (r *UserRepo) AddFavorite(ctx context.Context, username, movieID string) (*model.Account, error) {
	const q = `
UPDATE users
SET favorites = CASE WHEN $2::text = ANY(favorites) THEN favorites ELSE array_append(favorites, $2::text) END,
    updated_at = now()
WHERE username = $1
RETURNING ` + accountCols
	return r.queryAccount(ctx, q, username, movieID)
}

// RemoveFavorite drops every occurrence of movieID; absent ids are a no-op.
func (r *UserRepo) RemoveFavorite(ctx context.Context, username, movieID string) (*model.Account, error) {
	const q = `
UPDATE users
SET favorites = array_remove(favorites, $2::text),
    updated_at = now()
WHERE username = $1
RETURNING ` + accountCols
	return r.queryAccount(ctx, q, username, movieID)
}

// TokenVersion returns the account's current token version.
func (r *UserRepo) TokenVersion(ctx context.Context, username string) (int64, error) {
	const q = `SELECT token_version FROM users WHERE username = $1`
	var ver int64
	err := r.db.do(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, q, username).Scan(&ver)
	})
	if err != nil {
		return 0, mapErr(err)
	}
	return ver, nil
}
