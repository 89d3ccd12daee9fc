package service

import (
	"context"

	"github.com/and161185/myflix/internal/model"
	"github.com/and161185/myflix/internal/repository"
)

type favoriteInput struct {
	MovieID string `json:"movieID" validate:"required,max=128,printascii"`
}

// FavoritesService owns each account's set of favorite movie ids.
// Movie ids are opaque; they are not checked against the catalog.
type FavoritesService interface {
	// AddFavorite adds movieID to the set; adding a present id is a no-op.
	AddFavorite(ctx context.Context, username, movieID string) (*model.Account, error)
	// RemoveFavorite ensures movieID is absent; removing an absent id is a no-op.
	RemoveFavorite(ctx context.Context, username, movieID string) (*model.Account, error)
	// ListFavorites returns the favorites set.
	ListFavorites(ctx context.Context, username string) ([]string, error)
}

type FavoritesServiceImpl struct {
	users repository.AccountRepository
}

// NewFavoritesService constructs FavoritesService.
func NewFavoritesService(users repository.AccountRepository) *FavoritesServiceImpl {
	return &FavoritesServiceImpl{users: users}
}

// AddFavorite delegates a single set-union update to the repository.
func (s *FavoritesServiceImpl) AddFavorite(ctx context.Context, username, movieID string) (*model.Account, error) {
	if err := validateStruct(favoriteInput{MovieID: movieID}); err != nil {
		return nil, err
	}
	return s.users.AddFavorite(ctx, username, movieID)
}

// RemoveFavorite delegates a single set-removal update to the repository.
func (s *FavoritesServiceImpl) RemoveFavorite(ctx context.Context, username, movieID string) (*model.Account, error) {
	if err := validateStruct(favoriteInput{MovieID: movieID}); err != nil {
		return nil, err
	}
	return s.users.RemoveFavorite(ctx, username, movieID)
}

// ListFavorites reads the set from the account view.
func (s *FavoritesServiceImpl) ListFavorites(ctx context.Context, username string) ([]string, error) {
	a, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return a.Favorites, nil
}
