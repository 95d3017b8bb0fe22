package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is one dependency probe of the health endpoint. Detail, when set,
// is reported next to the probe's status.
type Check struct {
	Name   string
	Ping   func(ctx context.Context) error
	Detail func() any
}

// PoolCheck probes the records database.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:   "database",
		Ping:   pool.Ping,
		Detail: func() any { return GetPoolStats(pool) },
	}
}

// HealthHandler runs every check with a shared deadline. It answers 503
// when any check fails.
func HealthHandler(timeout time.Duration, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		status, code := "healthy", http.StatusOK
		results := make(map[string]any, len(checks))
		for _, chk := range checks {
			res := map[string]any{"status": "healthy"}
			if err := chk.Ping(ctx); err != nil {
				res["status"] = "unhealthy"
				res["error"] = err.Error()
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
			if chk.Detail != nil {
				res["detail"] = chk.Detail()
			}
			results[chk.Name] = res
		}

		return c.JSON(code, map[string]any{
			"status": status,
			"checks": results,
		})
	}
}
