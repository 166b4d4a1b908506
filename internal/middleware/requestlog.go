package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mission-control/internal/logging"
)

// RequestLogger writes one structured line per request.  Handler errors
// that reach echo are passed to c.Error first so the logged status is the
// one the client receives.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			ev := logging.Info()
			switch {
			case status >= 500:
				ev = logging.Error().Err(err)
			case status >= 400:
				ev = logging.Warn()
			}
			ev.Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("uri", c.Request().RequestURI).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP()).
				Str("user", currentUserID(c)).
				Msg("request")
			return nil
		}
	}
}
