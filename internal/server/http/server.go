// Package httpserver exposes the myFlix REST API over echo.
package httpserver

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/myflix/internal/service"
)

// Options wires services and transport settings into the router.
type Options struct {
	Log       *zap.Logger
	Accounts  service.AccountService
	Favorites service.FavoritesService
	Catalog   service.CatalogService
	Tokens    TokenVerifier

	// RPS and Burst configure the per-IP request limiter; RPS <= 0 disables it.
	RPS         float64
	Burst       int
	CORSOrigins []string
	BodyLimit   string

	// Registry receives HTTP metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server wires services into HTTP handlers.
type Server struct {
	accounts  service.AccountService
	favorites service.FavoritesService
	catalog   service.CatalogService
}

// New builds the echo router with middleware and all routes registered.
func New(o Options) *echo.Echo {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	if o.BodyLimit == "" {
		o.BodyLimit = "64K"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(o.Log)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.Must(uuid.NewV4()).String() },
	}))
	e.Use(Logging(o.Log))
	e.Use(Recover(o.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "myflix",
		Registerer: o.Registry,
	}))
	if o.RPS > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig(o.RPS, o.Burst)))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: corsOrigins(o.CORSOrigins)}))
	e.Use(middleware.BodyLimit(o.BodyLimit))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: o.Registry}))

	s := &Server{accounts: o.Accounts, favorites: o.Favorites, catalog: o.Catalog}
	s.routes(e, Authenticate(o.Tokens, o.Accounts))
	return e
}

func (s *Server) routes(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/", s.welcome)
	e.POST("/users", s.register)
	e.POST("/login", s.login)

	users := e.Group("/users/:username", auth, RequireOwner)
	users.GET("", s.getUser)
	users.PUT("", s.updateUser)
	users.DELETE("", s.deleteUser)
	users.POST("/movies/:movieID", s.addFavorite)
	users.DELETE("/movies/:movieID", s.removeFavorite)

	movies := e.Group("/movies", auth)
	movies.GET("", s.listMovies)
	movies.GET("/:title", s.movieByTitle)
	movies.GET("/genre/:genreName", s.genre)
	movies.GET("/director/:directorName", s.director)
}

func rateLimiterConfig(rps float64, burst int) middleware.RateLimiterConfig {
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) { return c.RealIP(), nil },
		ErrorHandler: func(echo.Context, error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(echo.Context, string, error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	}
}

func corsOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}
