// Command myflix-server starts the myFlix REST API and its gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/myflix/internal/config"
	"github.com/and161185/myflix/internal/health"
	"github.com/and161185/myflix/internal/limiter"
	"github.com/and161185/myflix/internal/migrate"
	"github.com/and161185/myflix/internal/repository/postgres"
	httpserver "github.com/and161185/myflix/internal/server/http"
	"github.com/and161185/myflix/internal/service"
	"github.com/and161185/myflix/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN, cfg.DBTimeout)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	movieRepo := postgres.NewMovieRepo(db)
	lim := limiter.NewPG(db, limiter.Config{
		Window:   cfg.LimiterWindow,
		MaxFails: cfg.LimiterMaxFails,
		BlockFor: cfg.LimiterBlockFor,
	})

	tokens, err := token.NewManager([]byte(cfg.JWTKey), cfg.AccessTTL, token.WithLeeway(30*time.Second))
	if err != nil {
		logger.Fatal("token manager", zap.Error(err))
	}

	// Services
	accounts := service.NewAccountService(userRepo, tokens, lim)
	favorites := service.NewFavoritesService(userRepo)
	catalog := service.NewCatalogService(movieRepo)

	e := httpserver.New(httpserver.Options{
		Log:         logger,
		Accounts:    accounts,
		Favorites:   favorites,
		Catalog:     catalog,
		Tokens:      tokens,
		RPS:         cfg.RPS,
		Burst:       cfg.Burst,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			logger.Fatal("health listen", zap.Error(err))
		}
		hs := health.New(db, logger, 10*time.Second)
		g.Go(func() error {
			hs.Run(gCtx)
			return nil
		})
		g.Go(func() error {
			logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
			return hs.Serve(lis)
		})
		g.Go(func() error {
			<-gCtx.Done()
			hs.Stop()
			return nil
		})
	}

	// Wait for a signal or the first listener failure, then drain HTTP.
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) *zap.Logger {
	zc := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
