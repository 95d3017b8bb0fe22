package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how often one client may call a route group.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// MaxClients caps the number of tracked clients; the least recently
	// seen is forgotten first.
	MaxClients int
	// IdleTTL forgets clients that have not called for this long.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig suits the export routes: a handful of downloads
// per minute per client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 0.2,
		BurstSize:         5,
		MaxClients:        1024,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimit limits requests per client IP with a token bucket per client.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	def := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = def.BurstSize
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	clients := expirable.NewLRU[string, *rate.Limiter](cfg.MaxClients, nil, cfg.IdleTTL)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			lim, ok := clients.Get(key)
			if !ok {
				lim = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)
			}
			// Re-adding refreshes the idle TTL.
			clients.Add(key, lim)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if !lim.Allow() {
				wait := time.Duration(float64(time.Second) / cfg.RequestsPerSecond)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// ExportsOnly applies mw to export routes and passes everything else
// through.
func ExportsOnly(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		limited := mw(next)
		return func(c echo.Context) error {
			if isExportPath(c.Request().URL.Path) {
				return limited(c)
			}
			return next(c)
		}
	}
}

func isExportPath(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(path, "/"), "/export")
}
