package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// The API docs page loads Swagger UI from unpkg.
	docsCSP = "default-src 'none'; script-src https://unpkg.com 'unsafe-inline'; style-src https://unpkg.com 'unsafe-inline'; img-src data: https://unpkg.com; connect-src 'self'; frame-ancestors 'none'"
)

// SecurityHeaders sets response headers for a JSON API that serves patient
// data and file downloads to a browser dashboard.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			if strings.HasSuffix(c.Request().URL.Path, "/docs") {
				h.Set("Content-Security-Policy", docsCSP)
			} else {
				h.Set("Content-Security-Policy", apiCSP)
			}
			h.Set("Referrer-Policy", "no-referrer")
			// Exports and tables carry patient data.
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
