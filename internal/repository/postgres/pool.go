// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/and161185/myflix/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close shuts down the pool and frees resources.
	Close()
}

// Defaults for per-call deadline and transient retry.
const (
	DefaultOpTimeout  = 5 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryBase  = 50 * time.Millisecond
)

// DB wraps the pool with a per-call deadline and bounded retry of transient failures.
type DB struct {
	Pool PgxPool

	OpTimeout  time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string, opTimeout time.Duration) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{
		Pool:       pool,
		OpTimeout:  opTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryBase:  DefaultRetryBase,
	}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// Ping checks the database under the per-call deadline.
func (db *DB) Ping(ctx context.Context) error {
	return db.do(ctx, db.Pool.Ping)
}

// Exec runs a statement through do, so callers outside this package get the
// same deadline and retry as the repositories.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	err := db.do(ctx, func(ctx context.Context) error {
		var err error
		tag, err = db.Pool.Exec(ctx, sql, args...)
		return err
	})
	return tag, err
}

// QueryRow defers the query until Scan so that it runs inside do.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return deferredRow{db: db, ctx: ctx, sql: sql, args: args}
}

type deferredRow struct {
	db   *DB
	ctx  context.Context
	sql  string
	args []any
}

func (r deferredRow) Scan(dest ...any) error {
	return r.db.do(r.ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, r.sql, r.args...).Scan(dest...)
	})
}

// do runs fn with a deadline derived from ctx and retries it while the driver
// reports the failure as safe to retry (nothing reached the server).
func (db *DB) do(ctx context.Context, fn func(ctx context.Context) error) error {
	timeout := db.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := db.RetryBase
	if base <= 0 {
		base = DefaultRetryBase
	}
	backoff := retry.WithMaxRetries(db.MaxRetries, retry.NewExponential(base))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && pgconn.SafeToRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

// mapErr converts driver errors into the errs taxonomy.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return errs.ErrNotFound
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", errs.ErrDependency, err)
	}
}
