package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/haruplan/haruplan/server/internal/observability"
)

// RequestLogger logs each request with a generated request ID and duration.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rc := observability.NewRequestContext(nil)
			c.Response().Header().Set("X-Request-Id", rc.RequestID)

			err := next(c)

			rc.LogCompletion("request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
			)
			return err
		}
	}
}
