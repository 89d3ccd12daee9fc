package httpserver

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
)

// memUsers is a minimal in-memory AccountRepository.
type memUsers struct {
	mu     sync.Mutex
	byName map[string]*model.Account
	fail   error // returned by GetByUsername when set
}

func newMemUsers() *memUsers { return &memUsers{byName: map[string]*model.Account{}} }

func (m *memUsers) snapshot(a *model.Account) *model.Account {
	c := *a
	c.Favorites = append([]string{}, a.Favorites...)
	return &c
}

func (m *memUsers) Create(_ context.Context, n *model.NewAccount) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[n.Username]; ok {
		return nil, errs.ErrAlreadyExists
	}
	a := &model.Account{ID: n.ID, Username: n.Username, PwdHash: n.PwdHash, Email: n.Email,
		Birthday: n.Birthday, Favorites: []string{}, CreatedAt: time.Now()}
	m.byName[n.Username] = a
	return m.snapshot(a), nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	a, ok := m.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return m.snapshot(a), nil
}

func (m *memUsers) UpdateProfile(_ context.Context, username string, p model.ProfilePatch) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byName[username]
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
		a.Birthday = p.Birthday
	}
	return m.snapshot(a), nil
}

func (m *memUsers) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[username]; !ok {
		return errs.ErrNotFound
	}
	delete(m.byName, username)
	return nil
}

func (m *memUsers) AddFavorite(_ context.Context, username, movieID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if !slices.Contains(a.Favorites, movieID) {
		a.Favorites = append(a.Favorites, movieID)
	}
	return m.snapshot(a), nil
}

func (m *memUsers) RemoveFavorite(_ context.Context, username, movieID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	kept := []string{}
	for _, f := range a.Favorites {
		if f != movieID {
			kept = append(kept, f)
		}
	}
	a.Favorites = kept
	return m.snapshot(a), nil
}

func (m *memUsers) TokenVersion(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byName[username]
	if !ok {
		return 0, errs.ErrNotFound
	}
	return a.TokenVersion, nil
}

type stubCatalog struct{ movies []model.Movie }

func (s stubCatalog) List(context.Context) ([]model.Movie, error) { return s.movies, nil }

func (s stubCatalog) ByTitle(_ context.Context, title string) (*model.Movie, error) {
	for i := range s.movies {
		if s.movies[i].Title == title {
			return &s.movies[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s stubCatalog) Genre(_ context.Context, name string) (*model.Genre, error) {
	for i := range s.movies {
		if s.movies[i].Genre.Name == name {
			return &s.movies[i].Genre, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s stubCatalog) Director(_ context.Context, name string) (*model.Director, error) {
	if name == "boom" {
		return nil, errors.New("connection reset")
	}
	for i := range s.movies {
		if s.movies[i].Director.Name == name {
			return &s.movies[i].Director, nil
		}
	}
	return nil, errs.ErrNotFound
}
