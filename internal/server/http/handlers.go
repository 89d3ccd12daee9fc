package httpserver

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/and161185/myflix/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) welcome(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to myFlix!")
}

func (s *Server) register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badBody()
	}
	a, err := s.accounts.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/users/"+url.PathEscape(a.Username))
	return c.JSON(http.StatusCreated, toAccountView(a))
}

// login accepts a JSON body or ?Username=&Password= query parameters.
func (s *Server) login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return badBody()
	}
	if in.Username == "" && in.Password == "" {
		in.Username = firstNonEmpty(c.QueryParam("Username"), c.QueryParam("username"))
		in.Password = firstNonEmpty(c.QueryParam("Password"), c.QueryParam("password"))
	}
	tok, a, err := s.accounts.Authenticate(c.Request().Context(), in.Username, in.Password, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginView{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: toAccountView(a)})
}

func (s *Server) getUser(c echo.Context) error {
	a, err := s.accounts.Get(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountView(a))
}

func (s *Server) updateUser(c echo.Context) error {
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return badBody()
	}
	a, err := s.accounts.UpdateProfile(c.Request().Context(), c.Param("username"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountView(a))
}

func (s *Server) deleteUser(c echo.Context) error {
	username := c.Param("username")
	if err := s.accounts.DeleteAccount(c.Request().Context(), username); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{"message": username + " was deleted"})
}

func (s *Server) addFavorite(c echo.Context) error {
	movieID, err := pathParam(c, "movieID")
	if err != nil {
		return err
	}
	a, err := s.favorites.AddFavorite(c.Request().Context(), c.Param("username"), movieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountView(a))
}

func (s *Server) removeFavorite(c echo.Context) error {
	movieID, err := pathParam(c, "movieID")
	if err != nil {
		return err
	}
	a, err := s.favorites.RemoveFavorite(c.Request().Context(), c.Param("username"), movieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountView(a))
}

func (s *Server) listMovies(c echo.Context) error {
	ms, err := s.catalog.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieViews(ms))
}

func (s *Server) movieByTitle(c echo.Context) error {
	title, err := pathParam(c, "title")
	if err != nil {
		return err
	}
	m, err := s.catalog.ByTitle(c.Request().Context(), title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieView(m))
}

func (s *Server) genre(c echo.Context) error {
	name, err := pathParam(c, "genreName")
	if err != nil {
		return err
	}
	g, err := s.catalog.Genre(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toGenreView(*g))
}

func (s *Server) director(c echo.Context) error {
	name, err := pathParam(c, "directorName")
	if err != nil {
		return err
	}
	d, err := s.catalog.Director(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDirectorView(*d))
}

// pathParam returns a decoded path parameter. Echo matches on RawPath when the
// request has one, and only then are params still escaped.
func pathParam(c echo.Context, name string) (string, error) {
	raw := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return raw, nil
	}
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "malformed "+name)
	}
	return v, nil
}

func badBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
