package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// TimeoutConfig bounds request handling time. Export routes build whole
// tables and get their own, longer deadline.
type TimeoutConfig struct {
	Default time.Duration
	Export  time.Duration
}

// RequestTimeout sets a context deadline on each request and answers 504
// if the handler has not finished by then.
func RequestTimeout(cfg TimeoutConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			timeout := cfg.Default
			if isExportPath(c.Request().URL.Path) && cfg.Export > 0 {
				timeout = cfg.Export
			}
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return echo.NewHTTPError(http.StatusGatewayTimeout, "request took too long")
				}
				return ctx.Err()
			}
		}
	}
}
