package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 5 * time.Second

// Health states reported by /health/db.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats is a point-in-time view of the connection pool.
type PoolStats struct {
	TotalConns        int32 `json:"total_conns"`
	IdleConns         int32 `json:"idle_conns"`
	AcquiredConns     int32 `json:"acquired_conns"`
	MaxConns          int32 `json:"max_conns"`
	AcquireCount      int64 `json:"acquire_count"`
	AcquireDurationMS int64 `json:"acquire_duration_ms"`
}

// Saturated reports whether every connection is checked out, so the next
// request will wait for one.
func (s PoolStats) Saturated() bool {
	return s.MaxConns > 0 && s.AcquiredConns >= s.MaxConns
}

// SnapshotPool returns a function reading the current stats of pool.
func SnapshotPool(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		stat := pool.Stat()
		return PoolStats{
			TotalConns:        stat.TotalConns(),
			IdleConns:         stat.IdleConns(),
			AcquiredConns:     stat.AcquiredConns(),
			MaxConns:          stat.MaxConns(),
			AcquireCount:      stat.AcquireCount(),
			AcquireDurationMS: stat.AcquireDuration().Milliseconds(),
		}
	}
}

// ConnectionStatus pings the database and returns "connected" or
// "disconnected: <reason>".
func ConnectionStatus(ctx context.Context, p Pinger) string {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "disconnected: " + err.Error()
	}
	return "connected"
}

type healthBody struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Pool     PoolStats `json:"pool"`
}

// HealthHandler serves /health/db. An unreachable database is 503; a
// reachable but saturated pool is reported as degraded with 200.
func HealthHandler(p Pinger, stats func() PoolStats) echo.HandlerFunc {
	return func(c echo.Context) error {
		body := healthBody{
			Status:   StateHealthy,
			Database: ConnectionStatus(c.Request().Context(), p),
			Pool:     stats(),
		}

		switch {
		case body.Database != "connected":
			body.Status = StateUnhealthy
			return c.JSON(http.StatusServiceUnavailable, body)
		case body.Pool.Saturated():
			body.Status = StateDegraded
		}
		return c.JSON(http.StatusOK, body)
	}
}
