package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Handlers observe it
// through the database and identity calls; if the deadline has passed when
// the handler returns and nothing was written, the client gets a 504.
// Mutations already issued are not rolled back.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				he := echo.NewHTTPError(http.StatusGatewayTimeout, map[string]string{
					"message": "request processing exceeded the allowed time limit",
					"code":    "TIMEOUT",
				})
				he.Internal = err
				return he
			}
			return err
		}
	}
}
