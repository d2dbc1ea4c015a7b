package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"filegate/internal/server/websession"
)

// RequireUser redirects anonymous requests to the login page with a
// return-path hint.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := websession.Current(c); !ok {
			return redirectToLogin(c)
		}
		return next(c)
	}
}

// RequireAdmin additionally requires the admin flag. Non-admin sessions
// are redirected to login, never shown the protected content.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := websession.Current(c)
		if !ok || !user.IsAdmin {
			return redirectToLogin(c)
		}
		return next(c)
	}
}

func redirectToLogin(c echo.Context) error {
	return c.Redirect(http.StatusFound,
		"/login?next="+url.QueryEscape(c.Request().URL.Path))
}

// RequestLogger returns an echo middleware that logs requests using slog.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			slog.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
				"bytes_out", res.Size,
			)

			return err
		}
	}
}
