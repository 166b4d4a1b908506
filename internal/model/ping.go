package model

import "time"

// Ping is a single geolocation report submitted by an agent.  A ping with a
// nil ParentPingID is the root of a trail; any other ping is a response that
// points at the ping it answers.  Pings are never updated or deleted once
// written, so every field is fixed at creation time.
//
// The json tags define the wire/storage contract shared with clients:
//
//	{id, userId, latitude, longitude, message|null, parentPingId|null, createdAt}
type Ping struct {
	ID           uint64    `json:"id"`           // pings.id (auto increment)
	UserID       uint64    `json:"userId"`       // pings.user_id, owner of the ping
	Latitude     string    `json:"latitude"`     // pings.latitude, decimal string
	Longitude    string    `json:"longitude"`    // pings.longitude, decimal string
	Message      *string   `json:"message"`      // pings.message (nullable)
	ParentPingID *uint64   `json:"parentPingId"` // pings.parent_ping_id (nullable)
	CreatedAt    time.Time `json:"createdAt"`    // pings.created_at (UTC)
}

// IsRoot reports whether the ping starts a trail.
func (p *Ping) IsRoot() bool { return p.ParentPingID == nil }

// NewPing carries the caller supplied fields of a ping before it is stored.
type NewPing struct {
	Latitude  string
	Longitude string
	Message   *string
}
