package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock, OpTimeout: time.Second, MaxRetries: 2, RetryBase: time.Millisecond}, mock
}

var accountColNames = []string{"id", "username", "pwd_hash", "email", "birthday", "favorites", "token_version", "created_at", "updated_at"}

func accountRows(id uuid.UUID, username string, favorites []string, ver int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(accountColNames).
		AddRow(id, username, "$argon2id$hash", username+"@example.com", (*time.Time)(nil), favorites, ver, now, now)
}

// transientErr is reported by pgconn.SafeToRetry as retryable.
type transientErr struct{}

func (transientErr) Error() string      { return "conn reset before send" }
func (transientErr) SafeToRetry() bool { return true }

func TestUserRepo_Create_OK_and_Conflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	n := &model.NewAccount{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "nick99",
		PwdHash:  "$argon2id$hash",
		Email:    "nick99@example.com",
	}

	// OK
	mock.ExpectQuery(`INSERT INTO users \(id, username, pwd_hash, email, birthday\) VALUES \(\$1, \$2, \$3, \$4, \$5\) ON CONFLICT \(username\) DO NOTHING RETURNING`).
		WithArgs(n.ID, n.Username, n.PwdHash, n.Email, n.Birthday).
		WillReturnRows(accountRows(n.ID, n.Username, []string{}, 0))
	a, err := r.Create(ctx, n)
	require.NoError(t, err)
	require.Equal(t, n.ID, a.ID)
	require.Empty(t, a.Favorites)

	// ON CONFLICT DO NOTHING -> no row
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(n.ID, n.Username, n.PwdHash, n.Email, n.Birthday).
		WillReturnRows(pgxmock.NewRows(accountColNames))
	_, err = r.Create(ctx, n)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	// unique violation on another constraint path
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(n.ID, n.Username, n.PwdHash, n.Email, n.Birthday).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, n)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, username, pwd_hash, email, birthday, favorites, token_version, created_at, updated_at FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnRows(accountRows(id, "nick99", []string{"movie-42"}, 2))
	a, err := r.GetByUsername(ctx, "nick99")
	require.NoError(t, err)
	require.Equal(t, "nick99", a.Username)
	require.Equal(t, []string{"movie-42"}, a.Favorites)
	require.Equal(t, int64(2), a.TokenVersion)
	require.Nil(t, a.Birthday)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnError(errors.New("db down"))
	_, err = r.GetByUsername(ctx, "nick99")
	require.ErrorIs(t, err, errs.ErrDependency)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_RetriesTransientErrors(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnError(transientErr{})
	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnRows(accountRows(id, "nick99", []string{}, 0))

	a, err := r.GetByUsername(context.Background(), "nick99")
	require.NoError(t, err)
	require.Equal(t, id, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_RetryIsBounded(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	// one try + MaxRetries(2)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`FROM users WHERE username = \$1`).
			WithArgs("nick99").
			WillReturnError(transientErr{})
	}
	_, err := r.GetByUsername(context.Background(), "nick99")
	require.ErrorIs(t, err, errs.ErrDependency)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	hash := "$argon2id$new"
	email := "new@example.com"
	patch := model.ProfilePatch{PwdHash: &hash, Email: &email}

	mock.ExpectQuery(`UPDATE users SET pwd_hash = COALESCE\(\$2::text, pwd_hash\)`).
		WithArgs("nick99", patch.PwdHash, patch.Email, patch.Birthday).
		WillReturnRows(accountRows(id, "nick99", []string{}, 1))
	a, err := r.UpdateProfile(ctx, "nick99", patch)
	require.NoError(t, err)
	require.Equal(t, int64(1), a.TokenVersion)

	mock.ExpectQuery(`UPDATE users SET pwd_hash`).
		WithArgs("ghost", patch.PwdHash, patch.Email, patch.Birthday).
		WillReturnRows(pgxmock.NewRows(accountColNames))
	_, err = r.UpdateProfile(ctx, "ghost", patch)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, "nick99"))

	mock.ExpectExec(`DELETE FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, "nick99"), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM users`).
		WithArgs("nick99").
		WillReturnError(errors.New("boom"))
	require.ErrorIs(t, r.Delete(ctx, "nick99"), errs.ErrDependency)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Favorites(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SET favorites = CASE WHEN \$2::text = ANY\(favorites\) THEN favorites ELSE array_append\(favorites, \$2::text\) END`).
		WithArgs("nick99", "movie-42").
		WillReturnRows(accountRows(id, "nick99", []string{"movie-42"}, 0))
	a, err := r.AddFavorite(ctx, "nick99", "movie-42")
	require.NoError(t, err)
	require.Equal(t, []string{"movie-42"}, a.Favorites)

	mock.ExpectQuery(`SET favorites = array_remove\(favorites, \$2::text\)`).
		WithArgs("nick99", "movie-42").
		WillReturnRows(accountRows(id, "nick99", nil, 0))
	a, err = r.RemoveFavorite(ctx, "nick99", "movie-42")
	require.NoError(t, err)
	require.NotNil(t, a.Favorites)
	require.Empty(t, a.Favorites)

	mock.ExpectQuery(`array_append`).
		WithArgs("ghost", "movie-42").
		WillReturnRows(pgxmock.NewRows(accountColNames))
	_, err = r.AddFavorite(ctx, "ghost", "movie-42")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`array_remove`).
		WithArgs("ghost", "movie-42").
		WillReturnRows(pgxmock.NewRows(accountColNames))
	_, err = r.RemoveFavorite(ctx, "ghost", "movie-42")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_TokenVersion(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT token_version FROM users WHERE username = \$1`).
		WithArgs("nick99").
		WillReturnRows(pgxmock.NewRows([]string{"token_version"}).AddRow(int64(4)))
	v, err := r.TokenVersion(ctx, "nick99")
	require.NoError(t, err)
	require.Equal(t, int64(4), v)

	mock.ExpectQuery(`SELECT token_version`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.TokenVersion(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
