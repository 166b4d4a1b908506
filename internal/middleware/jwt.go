package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/mission-control/internal/utils" // token parsing
)

// Context keys written by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the agent id (uint64) and username in the request context.  This
// is the only identity source for the ping endpoints: handlers trust
// c.Get("user_id") unconditionally.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			uid, username, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, uid)
			c.Set(CtxUsername, username)
			return next(c)
		}
	}
}
