// Package service holds the request-level logic that sits between the HTTP
// handlers and the stores: input normalization, the parent ownership check
// for trail responses, trail assembly and event publication.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/mission-control/internal/logging"
	"github.com/iliyamo/mission-control/internal/model"
	q "github.com/iliyamo/mission-control/internal/queue"
	"github.com/iliyamo/mission-control/internal/repository"
	"github.com/iliyamo/mission-control/internal/validation"
)

// DefaultLatestLimit is the number of pings returned by LatestPings when no
// limit is configured.
const DefaultLatestLimit = 3

// DefaultPublishTimeout bounds how long a write waits on the event broker.
const DefaultPublishTimeout = 2 * time.Second

// PingService is the only place that enforces the trail ownership rule: an
// agent may respond only to pings they own.
type PingService struct {
	store          repository.PingStore
	events         EventPublisher
	now            func() time.Time
	latestLimit    int
	publishTimeout time.Duration
}

// Option configures a PingService.
type Option func(*PingService)

// WithPublisher publishes a ping.created event after every stored ping.
func WithPublisher(p EventPublisher) Option { return func(s *PingService) { s.events = p } }

// WithPublishTimeout caps each event publish; the ping is already stored
// when the publish starts, so a slow broker only loses the event.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *PingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithClock overrides time.Now for status classification.
func WithClock(now func() time.Time) Option { return func(s *PingService) { s.now = now } }

// WithLatestLimit sets the size of the "latest pings" list.
func WithLatestLimit(n int) Option {
	return func(s *PingService) {
		if n > 0 {
			s.latestLimit = n
		}
	}
}

// NewPingService panics on a nil store, like the handler constructors do.
func NewPingService(store repository.PingStore, opts ...Option) *PingService {
	if store == nil {
		panic("nil store passed to NewPingService")
	}
	s := &PingService{store: store, now: time.Now, latestLimit: DefaultLatestLimit, publishTimeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pingInput is the validated form of model.NewPing.  The length limits
// match the pings table columns; message is counted in characters and the
// MEDIUMTEXT column holds 65535 of them at any UTF-8 width.
type pingInput struct {
	Latitude  string `validate:"required,max=32"`
	Longitude string `validate:"required,max=32"`
	Message   string `validate:"max=65535"`
}

// normalize trims the payload and rejects empty coordinates.  An empty or
// whitespace-only message is stored as null.
func normalize(in model.NewPing) (model.NewPing, error) {
	out := model.NewPing{
		Latitude:  strings.TrimSpace(in.Latitude),
		Longitude: strings.TrimSpace(in.Longitude),
	}
	if in.Message != nil {
		if m := strings.TrimSpace(*in.Message); m != "" {
			out.Message = &m
		}
	}
	check := pingInput{Latitude: out.Latitude, Longitude: out.Longitude}
	if out.Message != nil {
		check.Message = *out.Message
	}
	if verr := validation.ValidateStruct(&check); verr != nil {
		return model.NewPing{}, errors.Join(repository.ErrValidation, verr)
	}
	return out, nil
}

// CreatePing stores a new trail root for userID.
func (s *PingService) CreatePing(ctx context.Context, userID uint64, in model.NewPing) (*model.Ping, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	p, err := s.store.CreatePing(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, p)
	return p, nil
}

// SubmitResponse appends a response to parentID on behalf of userID.  The
// checks run in a fixed order: ErrNotFound when the parent does not exist,
// ErrForbidden when it belongs to another agent (whatever the payload), then
// ErrValidation for a bad payload.
func (s *PingService) SubmitResponse(ctx context.Context, parentID, userID uint64, in model.NewPing) (*model.Ping, error) {
	parent, err := s.store.GetPingByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.UserID != userID {
		return nil, repository.ErrForbidden
	}
	in, err = normalize(in)
	if err != nil {
		return nil, err
	}
	p, err := s.store.RespondToPing(ctx, parentID, userID, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, p)
	return p, nil
}

// GetPing returns one of userID's own pings.
func (s *PingService) GetPing(ctx context.Context, id, userID uint64) (*model.Ping, error) {
	p, err := s.store.GetPingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return p, nil
}

// ListPings returns all pings of userID in creation order.
func (s *PingService) ListPings(ctx context.Context, userID uint64) ([]*model.Ping, error) {
	return s.store.GetUserPings(ctx, userID)
}

// LatestPings returns the configured number of newest pings of userID.
func (s *PingService) LatestPings(ctx context.Context, userID uint64) ([]*model.Ping, error) {
	return s.store.GetLatestUserPings(ctx, userID, s.latestLimit)
}

// Trails rebuilds userID's trails.  With flatten set, responses to
// responses are attached to their chain's root instead of being dropped.
func (s *PingService) Trails(ctx context.Context, userID uint64, flatten bool) ([]model.TrailView, error) {
	pings, err := s.store.GetUserPings(ctx, userID)
	if err != nil {
		return nil, err
	}
	var trails []model.Trail
	if flatten {
		trails = FlattenTrails(pings)
	} else {
		trails = BuildTrails(pings)
	}
	return ViewTrails(trails, s.now()), nil
}

// Now is the service clock, exposed for handlers that render statuses.
func (s *PingService) Now() time.Time { return s.now() }

func (s *PingService) publish(ctx context.Context, p *model.Ping) {
	if s.events == nil {
		return
	}
	// detached from the request so a client disconnect does not drop the
	// event, but never longer than publishTimeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.events.PublishPingCreated(ctx, q.NewPingCreatedEvent(p)); err != nil {
		logging.Warn().Err(err).Uint64("ping_id", p.ID).Msg("publish ping.created failed")
	}
}
