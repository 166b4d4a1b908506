package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mission-control/internal/model"
	"github.com/iliyamo/mission-control/internal/service"
)

// PingHandler exposes the ping and trail endpoints of an authenticated
// agent.  Every operation is scoped to the agent id placed in the context
// by JWTAuth.
type PingHandler struct {
	Pings *service.PingService
}

// NewPingHandler panics on a nil service.
func NewPingHandler(svc *service.PingService) *PingHandler {
	if svc == nil {
		panic("nil service passed to NewPingHandler")
	}
	return &PingHandler{Pings: svc}
}

// pingReq is the body of POST /v1/pings and POST /v1/pings/:id/responses.
type pingReq struct {
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
	Message   *string `json:"message"`
}

func (r pingReq) toModel() model.NewPing {
	return model.NewPing{Latitude: r.Latitude, Longitude: r.Longitude, Message: r.Message}
}

const requestTimeout = 5 * time.Second

// CreatePing stores a new trail root.
func (h *PingHandler) CreatePing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req pingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Pings.CreatePing(ctx, uid, req.toModel())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// RespondToPing appends a response to the ping named by :id.
func (h *PingHandler) RespondToPing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	parentID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ping id"})
	}
	var req pingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Pings.SubmitResponse(ctx, parentID, uid, req.toModel())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ListPings returns every ping of the agent in creation order.
func (h *PingHandler) ListPings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pings, err := h.Pings.ListPings(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pings)
}

// LatestPings returns the newest pings of the agent, newest first.
func (h *PingHandler) LatestPings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pings, err := h.Pings.LatestPings(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pings)
}

// GetPing returns one of the agent's pings with its current status.
func (h *PingHandler) GetPing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ping id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Pings.GetPing(ctx, id, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, model.PingView{Ping: p, Status: service.Classify(p.CreatedAt, h.Pings.Now())})
}

// ListTrails returns the agent's trails, newest first.  ?flatten=true
// attaches responses to responses to their chain's root.
func (h *PingHandler) ListTrails(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	flatten := c.QueryParam("flatten") == "true" || c.QueryParam("flatten") == "1"

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	trails, err := h.Pings.Trails(ctx, uid, flatten)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, trails)
}
