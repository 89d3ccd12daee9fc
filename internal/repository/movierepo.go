package repository

import (
	"context"

	"github.com/and161185/myflix/internal/model"
)

// MovieRepository is a read-only view of the movie catalog.
type MovieRepository interface {
	// List returns all movies ordered by title.
	List(ctx context.Context) ([]model.Movie, error)
	// GetByTitle returns the movie with the exact title.
	GetByTitle(ctx context.Context, title string) (*model.Movie, error)
	// GetGenre returns the genre of the first movie carrying that genre name.
	GetGenre(ctx context.Context, name string) (*model.Genre, error)
	// GetDirector returns the director of the first movie by that director.
	GetDirector(ctx context.Context, name string) (*model.Director, error)
}
