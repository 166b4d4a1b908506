package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/mission-control/internal/logging"
)

// Pinger is satisfied by *sql.DB; Redis is adapted with PingFunc.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness probes.  Checks holds the
// dependencies readiness depends on, keyed by name; the memory backend
// registers none.
type HealthHandler struct {
	Checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &HealthHandler{Checks: checks}
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the process is running.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready reports 503 while any dependency fails its ping.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(h.Checks))
	for name, p := range h.Checks {
		if err := p.PingContext(ctx); err != nil {
			logging.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			result[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "up"
	}
	return c.JSON(status, echo.Map{"checks": result})
}
