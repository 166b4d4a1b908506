package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/mission-control/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/mission-control/internal/middleware" // JWT, rate limiting and caching
)

// RegisterRoutes registers the probes, which need no authentication.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// profile endpoint under the protected group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, protected *echo.Group) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body or a Bearer token, so it
	// sits outside the JWT-protected group.
	g.POST("/logout", a.Logout)

	protected.GET("/me", a.Me)
}

// RegisterPings registers the ping and trail endpoints on the protected
// group.  Plain ping lists go through the response cache and writes
// invalidate the caller's cached reads.  Routes that render a status are
// never cached since the status depends on the time of the read.
func RegisterPings(protected *echo.Group, p *handler.PingHandler, cache echo.MiddlewareFunc) {
	cached := protected.Group("", cache)
	cached.POST("/pings", p.CreatePing)
	cached.GET("/pings", p.ListPings)
	cached.GET("/pings/latest", p.LatestPings)
	cached.POST("/pings/:id/responses", p.RespondToPing)

	protected.GET("/pings/:id", p.GetPing)
	protected.GET("/trails", p.ListTrails)
}

// Protected creates the /v1 group every authenticated route hangs off:
// JWT first so the rate limiter can key on the agent.
func Protected(e *echo.Echo, jwtSecret string, limiter echo.MiddlewareFunc) *echo.Group {
	return e.Group("/v1", middleware.JWTAuth(jwtSecret), limiter)
}
