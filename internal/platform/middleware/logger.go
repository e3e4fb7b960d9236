package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
)

// Logger attaches a request-scoped logger to the request context, reachable
// with zerolog.Ctx, and writes one line per request once it completes.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			reqLogger := logger.With().Str("request_id", rid).Logger()
			c.SetRequest(req.WithContext(reqLogger.WithContext(req.Context())))

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			evt := reqLogger.Info()
			switch {
			case status >= 500:
				evt = reqLogger.Error().Err(err)
			case err != nil:
				evt = reqLogger.Warn().Err(err)
			}
			if err != nil {
				if kind := apperr.KindOf(err); kind != apperr.Unknown {
					evt = evt.Str("error_code", kind.Code())
				}
			}
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				evt = evt.Str("user_id", uid)
			}

			evt.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
