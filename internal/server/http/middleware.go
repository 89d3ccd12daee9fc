package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/myflix/internal/errs"
	"github.com/and161185/myflix/internal/model"
	"github.com/and161185/myflix/internal/token"
)

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (model.Identity, error)
}

// SessionChecker rejects tokens that were revoked after issue.
type SessionChecker interface {
	CheckSession(ctx context.Context, id model.Identity) error
}

// Logging writes one structured line per request. Bodies are never logged.
func Logging(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before logging it
				c.Error(err)
			}
			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("dur", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}
			if id, ok := IdentityFromCtx(req.Context()); ok {
				fields = append(fields, zap.String("user", id.Username))
			}
			log.Info("http", fields...)
			return nil
		}
	}
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					log.Error("panic",
						zap.Any("reason", r),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", c.Path()),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}

// Authenticate requires "Authorization: Bearer <jwt>", verifies it and
// checks it was not revoked. The identity is stored in the request context.
func Authenticate(tokens TokenVerifier, sessions SessionChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Add("Vary", echo.HeaderAuthorization)
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return unauthorized(c, err)
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				return unauthorized(c, err)
			}
			ctx := c.Request().Context()
			if err := sessions.CheckSession(ctx, id); err != nil {
				if errors.Is(err, errs.ErrInvalidToken) {
					return unauthorized(c, err)
				}
				return err
			}
			c.SetRequest(c.Request().WithContext(WithIdentity(ctx, id)))
			return next(c)
		}
	}
}

// RequireOwner allows the request only when the caller is the :username in the path.
// It runs before any handler touches the store.
func RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := IdentityFromCtx(c.Request().Context())
		if !ok {
			return unauthorized(c, errs.ErrInvalidToken)
		}
		if err := token.Authorize(id, c.Param("username")); err != nil {
			return err
		}
		return next(c)
	}
}

func bearerToken(h string) (string, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: missing bearer token", errs.ErrInvalidToken)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty bearer token", errs.ErrInvalidToken)
	}
	return raw, nil
}

func unauthorized(c echo.Context, err error) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return err
}
