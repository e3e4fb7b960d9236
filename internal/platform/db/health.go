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

// Pinger is anything whose liveness can be probed. *pgxpool.Pool satisfies it,
// as does the identity credential store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named dependency probed by the health handler.
type Check struct {
	Name   string
	Pinger Pinger
}

// HealthHandler probes every check with a 5s budget. Any failure turns the
// whole response into a 503. When pool is non-nil its stats are included.
func HealthHandler(pool *pgxpool.Pool, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			if err := chk.Pinger.Ping(ctx); err != nil {
				results[chk.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[chk.Name] = "ok"
		}

		body := map[string]interface{}{
			"status": "healthy",
			"checks": results,
		}
		if status != http.StatusOK {
			body["status"] = "unhealthy"
		}
		if pool != nil {
			body["pool"] = GetPoolStats(pool)
		}
		return c.JSON(status, body)
	}
}
