package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/myflix/internal/errs"
)

type envelope map[string]any

// statusFor maps domain errors to HTTP codes and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusBadRequest, "username already exists"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, errs.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden, "permission denied"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many failed login attempts, try again later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// ErrorHandler writes {"error": msg} bodies. Unknown and dependency errors are
// logged and reported as a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, _ := he.Message.(string)
			switch {
			case he.Code >= http.StatusInternalServerError:
				log.Error("http error", zap.Error(err), zap.String("path", c.Path()))
				msg = "internal error"
			case msg == "":
				msg = http.StatusText(he.Code)
			}
			_ = writeJSON(c, he.Code, envelope{"error": msg})
			return
		}

		code, msg := statusFor(err)
		body := envelope{"error": msg}
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			body["fields"] = verr.Fields
		}
		if code == http.StatusInternalServerError {
			log.Error("request failed", zap.Error(err), zap.String("path", c.Path()))
		}
		_ = writeJSON(c, code, body)
	}
}

func writeJSON(c echo.Context, code int, body any) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(code)
	}
	return c.JSON(code, body)
}
