package handler // handler defines http handlers

import (
	"errors"   // errors matches sentinel values from the lower layers
	"net/http" // net/http provides status codes
	"strconv"  // strconv converts path parameters

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/mission-control/internal/logging"
	"github.com/iliyamo/mission-control/internal/middleware"
	"github.com/iliyamo/mission-control/internal/repository"
	"github.com/iliyamo/mission-control/internal/validation"
)

// errInvalidIdentity is returned when JWTAuth did not run before a handler.
var errInvalidIdentity = errors.New("invalid user_id in context")

// getUserID extracts the authenticated agent id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return 0, errInvalidIdentity
	}
	return uid, nil
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeError maps the service error taxonomy onto HTTP statuses.  Anything
// unrecognised, storage failures included, is logged and reported as 500
// without leaking the cause.
func writeError(c echo.Context, err error) error {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "details": verr.Fields})
	case errors.Is(err, repository.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ping not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
	}
	logging.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
