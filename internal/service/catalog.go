package service

import (
	"context"
	"strings"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
	"github.com/and161185/myflix/internal/repository"
)

// CatalogService is a read-only view of the movie catalog.
type CatalogService interface {
	List(ctx context.Context) ([]model.Movie, error)
	ByTitle(ctx context.Context, title string) (*model.Movie, error)
	Genre(ctx context.Context, name string) (*model.Genre, error)
	Director(ctx context.Context, name string) (*model.Director, error)
}

type CatalogServiceImpl struct {
	movies repository.MovieRepository
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(movies repository.MovieRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{movies: movies}
}

func (s *CatalogServiceImpl) List(ctx context.Context) ([]model.Movie, error) {
	return s.movies.List(ctx)
}

func (s *CatalogServiceImpl) ByTitle(ctx context.Context, title string) (*model.Movie, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errs.NewValidation("title", "The title field is required.")
	}
	return s.movies.GetByTitle(ctx, title)
}

func (s *CatalogServiceImpl) Genre(ctx context.Context, name string) (*model.Genre, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewValidation("genreName", "The genreName field is required.")
	}
	return s.movies.GetGenre(ctx, name)
}

func (s *CatalogServiceImpl) Director(ctx context.Context, name string) (*model.Director, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewValidation("directorName", "The directorName field is required.")
	}
	return s.movies.GetDirector(ctx, name)
}
