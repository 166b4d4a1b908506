package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/mission-control/internal/config"
	"github.com/iliyamo/mission-control/internal/handler"
	"github.com/iliyamo/mission-control/internal/middleware"
	"github.com/iliyamo/mission-control/internal/model"
	"github.com/iliyamo/mission-control/internal/repository"
	"github.com/iliyamo/mission-control/internal/service"
)

const secret = "test-secret"

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T, rdb *redis.Client, opts ...service.Option) *testServer {
	t.Helper()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}

	pings := service.NewPingService(repository.NewMemoryPingStore(nil), opts...)
	auth := handler.NewAuthHandler(cfg, repository.NewMemoryUserStore(nil), repository.NewMemoryTokenStore(nil))

	e := echo.New()
	RegisterRoutes(e, handler.NewHealthHandler(nil))
	limiter := middleware.NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)
	cacheCfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	protected := Protected(e, secret, limiter)
	RegisterAuth(e, auth, protected)
	RegisterPings(protected, handler.NewPingHandler(pings), middleware.NewRedisCache(cacheCfg, rdb))
	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"username":"`+username+`","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Access.Token
}

func decodePing(t *testing.T, rec *httptest.ResponseRecorder) model.Ping {
	t.Helper()
	var p model.Ping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPingsRequireAuth(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/pings", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/pings", "garbage", "").Code)
}

func TestTrailScenario(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	rec := s.do(t, http.MethodPost, "/v1/pings", alice, `{"latitude":"10.0000","longitude":"20.0000","message":"start"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p1 := decodePing(t, rec)
	assert.Nil(t, p1.ParentPingID)
	assert.Equal(t, "start", *p1.Message)

	rec = s.do(t, http.MethodPost, "/v1/pings/"+strconv.FormatUint(p1.ID, 10)+"/responses", alice, `{"latitude":"10.0001","longitude":"20.0001"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p2 := decodePing(t, rec)
	require.NotNil(t, p2.ParentPingID)
	assert.Equal(t, p1.ID, *p2.ParentPingID)
	assert.Contains(t, rec.Body.String(), `"message":null`)

	rec = s.do(t, http.MethodPost, "/v1/pings/"+strconv.FormatUint(p1.ID, 10)+"/responses", bob, `{"latitude":"1","longitude":"2"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/pings/999/responses", alice, `{"latitude":"1","longitude":"2"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/pings/abc/responses", alice, `{"latitude":"1","longitude":"2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/trails", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trails []model.TrailView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trails))
	require.Len(t, trails, 1)
	assert.Equal(t, p1.ID, trails[0].Root.ID)
	assert.Equal(t, model.StatusActive, trails[0].Root.Status)
	require.Len(t, trails[0].Responses, 1)
	assert.Equal(t, p2.ID, trails[0].Responses[0].ID)

	rec = s.do(t, http.MethodGet, "/v1/trails", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/pings/"+strconv.FormatUint(p1.ID, 10), bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/pings/"+strconv.FormatUint(p1.ID, 10), alice, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ACTIVE"`)
}

func TestCreatePingValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "carol")

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "missing latitude", body: `{"longitude":"20"}`, code: http.StatusBadRequest},
		{name: "empty longitude", body: `{"latitude":"10","longitude":""}`, code: http.StatusBadRequest},
		{name: "malformed json", body: `{"latitude":`, code: http.StatusBadRequest},
		{name: "oversized message", body: `{"latitude":"10","longitude":"20","message":"` + strings.Repeat("x", 65536) + `"}`, code: http.StatusBadRequest},
		{name: "ok", body: `{"latitude":"10","longitude":"20"}`, code: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/pings", token, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestLatestPings(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.register(t, "dave")

	var ids []uint64
	for i := 0; i < 4; i++ {
		rec := s.do(t, http.MethodPost, "/v1/pings", token, `{"latitude":"1","longitude":"2"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodePing(t, rec).ID)
	}

	rec := s.do(t, http.MethodGet, "/v1/pings/latest", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest []model.Ping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Len(t, latest, 3)
	assert.Equal(t, []uint64{ids[3], ids[2], ids[1]}, []uint64{latest[0].ID, latest[1].ID, latest[2].ID})

	rec = s.do(t, http.MethodGet, "/v1/pings", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.Ping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 4)
}

func TestCachedListSeesNewPing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newTestServer(t, rdb)
	token := s.register(t, "erin")

	rec := s.do(t, http.MethodGet, "/v1/pings", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = s.do(t, http.MethodGet, "/v1/pings", token, "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/pings", token, `{"latitude":"1","longitude":"2"}`).Code)

	rec = s.do(t, http.MethodGet, "/v1/pings", token, "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	var all []model.Ping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"username":"frank","password":"longenough","email":"frank@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"username":"FRANK","password":"longenough"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"username":"gg","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "details")

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"username":"frank","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"username":"frank","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = s.do(t, http.MethodGet, "/v1/me", login.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"frank"`)
	assert.Contains(t, rec.Body.String(), `"email":"frank@example.com"`)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// rotated: the old refresh token is spent
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", login.Access.Token, `{}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusIsComputedOnEveryRead(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Now()
	s := newTestServer(t, rdb, service.WithClock(func() time.Time { return now }))
	token := s.register(t, "grace")

	rec := s.do(t, http.MethodPost, "/v1/pings", token, `{"latitude":"1","longitude":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := strconv.FormatUint(decodePing(t, rec).ID, 10)

	trailStatus := func() model.PingStatus {
		rec := s.do(t, http.MethodGet, "/v1/trails", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
		var trails []model.TrailView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trails))
		require.Len(t, trails, 1)
		return trails[0].Root.Status
	}
	pingStatus := func() string {
		rec := s.do(t, http.MethodGet, "/v1/pings/"+id, token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
		var view struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		return view.Status
	}

	assert.Equal(t, model.StatusActive, trailStatus())
	assert.Equal(t, string(model.StatusActive), pingStatus())

	now = now.Add(10 * time.Minute)
	assert.Equal(t, model.StatusTransmitted, trailStatus())
	assert.Equal(t, string(model.StatusTransmitted), pingStatus())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, model.StatusCompleted, trailStatus())
	assert.Equal(t, string(model.StatusCompleted), pingStatus())
}
