package model

import "time"

// PingStatus is the age-derived state of a ping.  It is computed on read and
// only ever moves forward: ACTIVE -> TRANSMITTED -> COMPLETED.
type PingStatus string

const (
	StatusActive      PingStatus = "ACTIVE"
	StatusTransmitted PingStatus = "TRANSMITTED"
	StatusCompleted   PingStatus = "COMPLETED"
)

// Trail is a root ping plus the responses attached to it, oldest first.
// Trails are never stored; they are rebuilt from a flat list of pings.
type Trail struct {
	Root      *Ping   `json:"root"`
	Responses []*Ping `json:"responses"`
}

// PingView decorates a ping with its status at the time of the request.
type PingView struct {
	*Ping
	Status PingStatus `json:"status"`
}

// TrailView is the response shape of GET /v1/trails.
type TrailView struct {
	Root      PingView   `json:"root"`
	Responses []PingView `json:"responses"`
	UpdatedAt time.Time  `json:"updatedAt"` // createdAt of the newest ping in the trail
}
