package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/clinicadmin/clinicadmin/internal/platform/upstream"
)

// ForwardToken passes the caller's Authorization header on to the records
// API. The dashboard holds no credentials of its own; the records API
// decides what the caller may see.
func ForwardToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := c.Request().Header.Get(echo.HeaderAuthorization); token != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(upstream.WithToken(req.Context(), token)))
			}
			return next(c)
		}
	}
}
