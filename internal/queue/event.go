// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/mission-control/internal/model"
)

// PingCreatedQueue is the durable queue that carries PingCreatedEvent.
const PingCreatedQueue = "ping.created"

// PingCreatedEvent is published after a ping (root or response) has been
// stored.  It carries the full record so consumers never need to query the
// primary database.
type PingCreatedEvent struct {
	PingID       uint64  `json:"ping_id"`
	UserID       uint64  `json:"user_id"`
	ParentPingID *uint64 `json:"parent_ping_id"`
	Latitude     string  `json:"latitude"`
	Longitude    string  `json:"longitude"`
	Message      *string `json:"message,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// NewPingCreatedEvent builds the event payload for p.
func NewPingCreatedEvent(p *model.Ping) PingCreatedEvent {
	return PingCreatedEvent{
		PingID:       p.ID,
		UserID:       p.UserID,
		ParentPingID: p.ParentPingID,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Message:      p.Message,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
