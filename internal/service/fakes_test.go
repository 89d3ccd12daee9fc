package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/limiter"
	"github.com/and161185/myflix/internal/model"
	"github.com/and161185/myflix/internal/repository"
)

// fakeUsers is an in-memory AccountRepository with the same set semantics as the SQL.
type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*model.Account

	getErr    error
	createErr error

	getCalls int
}

var _ repository.AccountRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byName: map[string]*model.Account{}} }

func clone(a *model.Account) *model.Account {
	c := *a
	c.Favorites = append([]string{}, a.Favorites...)
	return &c
}

func (f *fakeUsers) Create(_ context.Context, n *model.NewAccount) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.byName[n.Username]; exists {
		return nil, errs.ErrAlreadyExists
	}
	now := time.Now()
	a := &model.Account{
		ID: n.ID, Username: n.Username, PwdHash: n.PwdHash, Email: n.Email,
		Birthday: n.Birthday, Favorites: []string{}, CreatedAt: now, UpdatedAt: now,
	}
	f.byName[n.Username] = a
	return clone(a), nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clone(a), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, username string, p model.ProfilePatch) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if p.PwdHash != nil {
		a.PwdHash = *p.PwdHash
		a.TokenVersion++
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Birthday != nil {
		b := *p.Birthday
		a.Birthday = &b
	}
	return clone(a), nil
}

func (f *fakeUsers) Delete(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[username]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byName, username)
	return nil
}

func (f *fakeUsers) AddFavorite(_ context.Context, username, movieID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if !slices.Contains(a.Favorites, movieID) {
		a.Favorites = append(a.Favorites, movieID)
	}
	return clone(a), nil
}

func (f *fakeUsers) RemoveFavorite(_ context.Context, username, movieID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := a.Favorites[:0]
	for _, m := range a.Favorites {
		if m != movieID {
			out = append(out, m)
		}
	}
	a.Favorites = out
	return clone(a), nil
}

func (f *fakeUsers) TokenVersion(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byName[username]
	if !ok {
		return 0, errs.ErrNotFound
	}
	return a.TokenVersion, nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeIssuer struct{ err error }

func (f fakeIssuer) Issue(a *model.Account) (model.Tokens, error) {
	if f.err != nil {
		return model.Tokens{}, f.err
	}
	return model.Tokens{AccessToken: "tok-" + a.Username, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeMovies struct {
	movies []model.Movie
	err    error
}

var _ repository.MovieRepository = (*fakeMovies)(nil)

func (f *fakeMovies) List(context.Context) ([]model.Movie, error) { return f.movies, f.err }

func (f *fakeMovies) GetByTitle(_ context.Context, title string) (*model.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.movies {
		if f.movies[i].Title == title {
			return &f.movies[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeMovies) GetGenre(_ context.Context, name string) (*model.Genre, error) {
	for i := range f.movies {
		if f.movies[i].Genre.Name == name {
			return &f.movies[i].Genre, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeMovies) GetDirector(_ context.Context, name string) (*model.Director, error) {
	for i := range f.movies {
		if f.movies[i].Director.Name == name {
			return &f.movies[i].Director, nil
		}
	}
	return nil, errs.ErrNotFound
}
