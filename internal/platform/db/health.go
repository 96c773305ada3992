package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by every store backend.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// pooled is implemented by backends that sit on a pgx pool.
type pooled interface {
	Pool() *pgxpool.Pool
}

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

// HealthReport is the body of GET /health/store.
type HealthReport struct {
	Status string     `json:"status"`
	Driver string     `json:"driver"`
	Error  string     `json:"error,omitempty"`
	Pool   *PoolStats `json:"pool,omitempty"`
}

// Check pings the backend with a five second budget.
func Check(ctx context.Context, backend Pinger) (*HealthReport, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	report := &HealthReport{Status: "healthy", Driver: backend.Name()}
	if p, ok := backend.(pooled); ok && p.Pool() != nil {
		report.Pool = GetPoolStats(p.Pool())
	}
	if err := backend.Ping(ctx); err != nil {
		report.Status = "unhealthy"
		report.Error = err.Error()
		return report, false
	}
	return report, true
}

// HealthHandler returns a handler for the store health check endpoint.
func HealthHandler(backend Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, ok := Check(c.Request().Context(), backend)
		if !ok {
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
