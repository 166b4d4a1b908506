package middleware

// identity.go holds the helpers that read the agent identity stored by
// JWTAuth.  Rate limiting and caching key on it; "anon" is used when the
// request is not authenticated.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated agent id.
func UserID(c echo.Context) (uint64, bool) {
	uid, ok := c.Get(CtxUserID).(uint64)
	return uid, ok && uid != 0
}

func currentUserID(c echo.Context) string {
	if uid, ok := UserID(c); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
