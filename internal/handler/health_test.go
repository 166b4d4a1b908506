package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestReady(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		code   int
		body   string
	}{
		{name: "no checks", checks: nil, code: http.StatusOK, body: `{"checks":{}}`},
		{name: "all up", checks: map[string]Pinger{"mysql": up, "redis": up}, code: http.StatusOK, body: `{"checks":{"mysql":"up","redis":"up"}}`},
		{name: "one down", checks: map[string]Pinger{"mysql": up, "redis": down}, code: http.StatusServiceUnavailable, body: `{"checks":{"mysql":"up","redis":"down"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)
			assert.NoError(t, NewHealthHandler(tt.checks).Ready(c))
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
