// Package loggingmw binds a per-request slog logger into the request
// context, so handlers pick it up through logging.FromContext.
package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quanghuy/freshmart/internal/logging"
)

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// the RequestID middleware runs first; a generated id lands
			// on the response header
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", c.Request().Method,
				"route", c.Path(),
				"path", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
			}
			if q := c.Request().URL.RawQuery; q != "" {
				l = l.With("query", q)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			ms := time.Since(start).Milliseconds()
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}

			switch {
			case err != nil:
				l.Error("request_completed", "status", status, "duration_ms", ms, "error", err)
			case status >= 500:
				l.Error("request_completed", "status", status, "duration_ms", ms)
			case status >= 400:
				l.Warn("request_completed", "status", status, "duration_ms", ms)
			default:
				l.Info("request_completed", "status", status, "duration_ms", ms, "bytes_out", c.Response().Size)
			}
			return nil
		}
	}
}
