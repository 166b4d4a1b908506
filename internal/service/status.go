package service

import (
	"time"

	"github.com/iliyamo/mission-control/internal/model"
)

const (
	activeWindow      = 5 * time.Minute
	transmittedWindow = 60 * time.Minute
)

// Classify derives a ping's status from its age at now.  A createdAt in the
// future (clock skew between writers) counts as ACTIVE.
func Classify(createdAt, now time.Time) model.PingStatus {
	age := now.Sub(createdAt)
	switch {
	case age < activeWindow:
		return model.StatusActive
	case age < transmittedWindow:
		return model.StatusTransmitted
	default:
		return model.StatusCompleted
	}
}

// ViewTrails attaches statuses computed at now to every ping of trails.
func ViewTrails(trails []model.Trail, now time.Time) []model.TrailView {
	out := make([]model.TrailView, 0, len(trails))
	for _, t := range trails {
		v := model.TrailView{
			Root:      viewPing(t.Root, now),
			Responses: make([]model.PingView, 0, len(t.Responses)),
			UpdatedAt: t.Root.CreatedAt,
		}
		for _, r := range t.Responses {
			v.Responses = append(v.Responses, viewPing(r, now))
			if r.CreatedAt.After(v.UpdatedAt) {
				v.UpdatedAt = r.CreatedAt
			}
		}
		out = append(out, v)
	}
	return out
}

// ViewPings attaches statuses computed at now to pings.
func ViewPings(pings []*model.Ping, now time.Time) []model.PingView {
	out := make([]model.PingView, 0, len(pings))
	for _, p := range pings {
		out = append(out, viewPing(p, now))
	}
	return out
}

func viewPing(p *model.Ping, now time.Time) model.PingView {
	return model.PingView{Ping: p, Status: Classify(p.CreatedAt, now)}
}
