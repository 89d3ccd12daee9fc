package httpserver

import (
	"time"

	"github.com/and161185/myflix/internal/model"
)

const dateLayout = "2006-01-02"

// accountView is the public account shape. It never carries the password hash.
type accountView struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Birthday       string    `json:"birthday,omitempty"`
	FavoriteMovies []string  `json:"favoriteMovies"`
	CreatedAt      time.Time `json:"createdAt"`
}

type genreView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type directorView struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Birth string `json:"birth,omitempty"`
	Death string `json:"death,omitempty"`
}

type movieView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Genre       genreView    `json:"genre"`
	Director    directorView `json:"director"`
	ImagePath   string       `json:"imagePath,omitempty"`
	Featured    bool         `json:"featured"`
}

type loginView struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      accountView `json:"user"`
}

func date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func toAccountView(a *model.Account) accountView {
	favs := a.Favorites
	if favs == nil {
		favs = []string{}
	}
	return accountView{
		ID:             a.ID.String(),
		Username:       a.Username,
		Email:          a.Email,
		Birthday:       date(a.Birthday),
		FavoriteMovies: favs,
		CreatedAt:      a.CreatedAt,
	}
}

func toGenreView(g model.Genre) genreView {
	return genreView{Name: g.Name, Description: g.Description}
}

func toDirectorView(d model.Director) directorView {
	return directorView{Name: d.Name, Bio: d.Bio, Birth: date(d.Birth), Death: date(d.Death)}
}

func toMovieView(m *model.Movie) movieView {
	return movieView{
		ID:          m.ID.String(),
		Title:       m.Title,
		Description: m.Description,
		Genre:       toGenreView(m.Genre),
		Director:    toDirectorView(m.Director),
		ImagePath:   m.ImagePath,
		Featured:    m.Featured,
	}
}

func toMovieViews(ms []model.Movie) []movieView {
	out := make([]movieView, 0, len(ms))
	for i := range ms {
		out = append(out, toMovieView(&ms[i]))
	}
	return out
}
