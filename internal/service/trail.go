package service

import (
	"sort"

	"github.com/iliyamo/mission-control/internal/model"
)

// BuildTrails groups a flat list of pings into trails.  Each root
// (ParentPingID == nil) collects the responses whose ParentPingID equals its
// id, oldest first; trails are ordered newest root first.  Responses whose
// parent is not a root present in pings are left out.
//
// The input slice and the pings it points to are not modified, so calling
// BuildTrails twice on the same input yields the same result.
func BuildTrails(pings []*model.Ping) []model.Trail {
	return assemble(pings, func(p *model.Ping, _ map[uint64]*model.Ping) (uint64, bool) {
		return *p.ParentPingID, true
	})
}

// FlattenTrails is BuildTrails for deeper chains: a response to a response
// is attached to the root its chain starts from.  Chains that never reach a
// root present in pings are left out.
func FlattenTrails(pings []*model.Ping) []model.Trail {
	return assemble(pings, nearestRoot)
}

// rootOf resolves the root id a response belongs to.
type rootOf func(p *model.Ping, byID map[uint64]*model.Ping) (uint64, bool)

func assemble(pings []*model.Ping, resolve rootOf) []model.Trail {
	byID := make(map[uint64]*model.Ping, len(pings))
	roots := make([]*model.Ping, 0)
	for _, p := range pings {
		if p == nil {
			continue
		}
		byID[p.ID] = p
		if p.IsRoot() {
			roots = append(roots, p)
		}
	}

	grouped := make(map[uint64][]*model.Ping, len(roots))
	for _, p := range pings {
		if p == nil || p.IsRoot() {
			continue
		}
		rootID, ok := resolve(p, byID)
		if !ok {
			continue
		}
		if root, present := byID[rootID]; !present || !root.IsRoot() {
			continue
		}
		grouped[rootID] = append(grouped[rootID], p)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		if !roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].CreatedAt.After(roots[j].CreatedAt)
		}
		return roots[i].ID > roots[j].ID
	})

	trails := make([]model.Trail, 0, len(roots))
	for _, root := range roots {
		responses := grouped[root.ID]
		if responses == nil {
			responses = []*model.Ping{}
		}
		sort.SliceStable(responses, func(i, j int) bool {
			if !responses[i].CreatedAt.Equal(responses[j].CreatedAt) {
				return responses[i].CreatedAt.Before(responses[j].CreatedAt)
			}
			return responses[i].ID < responses[j].ID
		})
		trails = append(trails, model.Trail{Root: root, Responses: responses})
	}
	return trails
}

// nearestRoot walks parent links inside byID until it reaches a root.
func nearestRoot(p *model.Ping, byID map[uint64]*model.Ping) (uint64, bool) {
	seen := make(map[uint64]bool)
	cur := p
	for cur.ParentPingID != nil {
		if seen[cur.ID] {
			return 0, false // cycle
		}
		seen[cur.ID] = true
		parent, ok := byID[*cur.ParentPingID]
		if !ok {
			return 0, false
		}
		cur = parent
	}
	return cur.ID, true
}
