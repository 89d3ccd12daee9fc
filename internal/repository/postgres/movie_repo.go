package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/myflix/internal/model"
)

const movieCols = `id, title, description, genre_name, genre_description,
director_name, director_bio, director_birth, director_death, image_path, featured`

// MovieRepo implements the read-only MovieRepository using PostgreSQL.
type MovieRepo struct{ db *DB }

// NewMovieRepo constructs a catalog repository.
func NewMovieRepo(db *DB) *MovieRepo { return &MovieRepo{db: db} }

func scanMovie(row pgx.Row) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Genre.Name, &m.Genre.Description,
		&m.Director.Name, &m.Director.Bio, &m.Director.Birth, &m.Director.Death, &m.ImagePath, &m.Featured)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every movie ordered by title.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieCols + ` FROM movies ORDER BY title`
	var out []model.Movie
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMovie(rows)
			if err != nil {
				return err
			}
			out = append(out, *m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapErr(err)
	}
	if out == nil {
		out = []model.Movie{}
	}
	return out, nil
}

// GetByTitle selects a movie by exact title.
func (r *MovieRepo) GetByTitle(ctx context.Context, title string) (*model.Movie, error) {
	const q = `SELECT ` + movieCols + ` FROM movies WHERE title = $1`
	var m *model.Movie
	err := r.db.do(ctx, func(ctx context.Context) error {
		var err error
		m, err = scanMovie(r.db.Pool.QueryRow(ctx, q, title))
		return err
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

// GetGenre returns the genre block of the first movie in that genre.
func (r *MovieRepo) GetGenre(ctx context.Context, name string) (*model.Genre, error) {
	const q = `SELECT genre_name, genre_description FROM movies WHERE genre_name = $1 ORDER BY title LIMIT 1`
	var g model.Genre
	err := r.db.do(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, q, name).Scan(&g.Name, &g.Description)
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// GetDirector returns the director block of the first movie by that director.
func (r *MovieRepo) GetDirector(ctx context.Context, name string) (*model.Director, error) {
	const q = `SELECT director_name, director_bio, director_birth, director_death FROM movies WHERE director_name = $1 ORDER BY title LIMIT 1`
	var d model.Director
	err := r.db.do(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, q, name).Scan(&d.Name, &d.Bio, &d.Birth, &d.Death)
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}
