package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/mission-control/internal/middleware"
	"github.com/iliyamo/mission-control/internal/repository"
	"github.com/iliyamo/mission-control/internal/validation"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	verr := &validation.RequestValidationError{Fields: []validation.FieldError{{Field: "latitude", Tag: "required", Message: "latitude is required"}}}

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation details", err: errors.Join(repository.ErrValidation, verr), code: http.StatusBadRequest},
		{name: "bare validation", err: repository.ErrValidation, code: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("get ping: %w", repository.ErrNotFound), code: http.StatusNotFound},
		{name: "forbidden", err: repository.ErrForbidden, code: http.StatusForbidden},
		{name: "conflict", err: repository.ErrUsernameExists, code: http.StatusConflict},
		{name: "storage", err: &repository.StorageError{Op: "insert ping", Err: errors.New("deadlock")}, code: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			assert.NoError(t, writeError(c, tt.err))
			assert.Equal(t, tt.code, rec.Code)
			assert.NotContains(t, rec.Body.String(), "deadlock")
		})
	}
}

func TestParseID(t *testing.T) {
	e := echo.New()
	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "x": false, "": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, ok := parseID(c, "id")
		assert.Equal(t, want, ok, raw)
	}
}

func TestGetUserID(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := getUserID(c)
	assert.ErrorIs(t, err, errInvalidIdentity)

	c.Set(middleware.CtxUserID, uint64(5))
	uid, err := getUserID(c)
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), uid)
}
