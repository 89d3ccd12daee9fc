package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by PG.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is a PostgreSQL-backed limiter with a sliding window and lockout.
type PG struct {
	q   Querier
	cfg Config
	now func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter. Zero fields of cfg fall back to DefaultConfig.
func NewPG(q Querier, cfg Config) *PG {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	if cfg.MaxFails <= 0 {
		cfg.MaxFails = DefaultConfig.MaxFails
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = DefaultConfig.BlockFor
	}
	return &PG{q: q, cfg: cfg, now: time.Now}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE username = $1 AND ip_hash = $2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, username, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if wait := blockedUntil.Sub(l.now()); wait > 0 {
			return false, wait, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success clears the (username, ip) row.
func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `DELETE FROM login_attempts WHERE username = $1 AND ip_hash = $2`
	_, err := l.q.Exec(ctx, q, username, ipHash)
	return err
}

// Failure bumps the counter and, on reaching MaxFails, sets blocked_until in the same statement.
func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_attempts AS a (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, CASE WHEN 1 >= $4 THEN now() + $5::interval ELSE 'epoch'::timestamptz END, now())
ON CONFLICT (username, ip_hash) DO UPDATE
SET fail_count = CASE WHEN now() - a.updated_at > $3::interval THEN 1 ELSE a.fail_count + 1 END,
    blocked_until = CASE
        WHEN (CASE WHEN now() - a.updated_at > $3::interval THEN 1 ELSE a.fail_count + 1 END) >= $4
        THEN now() + $5::interval
        ELSE a.blocked_until END,
    updated_at = now()
RETURNING fail_count, blocked_until`
	var (
		fails        int
		blockedUntil time.Time
	)
	err := l.q.QueryRow(ctx, q, username, ipHash, l.cfg.Window, l.cfg.MaxFails, l.cfg.BlockFor).
		Scan(&fails, &blockedUntil)
	if err != nil {
		return false, 0, err
	}
	if fails >= l.cfg.MaxFails {
		wait := blockedUntil.Sub(l.now())
		if wait < 0 {
			wait = 0
		}
		return true, wait, nil
	}
	return false, 0, nil
}
