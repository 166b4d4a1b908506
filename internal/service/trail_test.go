package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mission-control/internal/model"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func ping(id uint64, parent uint64, offset time.Duration) *model.Ping {
	p := &model.Ping{ID: id, UserID: agentA, Latitude: "1", Longitude: "2", CreatedAt: t0.Add(offset)}
	if parent != 0 {
		pid := parent
		p.ParentPingID = &pid
	}
	return p
}

func ids(pings []*model.Ping) []uint64 {
	out := make([]uint64, 0, len(pings))
	for _, p := range pings {
		out = append(out, p.ID)
	}
	return out
}

func TestBuildTrails(t *testing.T) {
	r1 := ping(1, 0, 0)
	r2 := ping(2, 0, time.Minute)
	a := ping(3, 1, 3*time.Minute)
	b := ping(4, 1, 2*time.Minute) // older than a despite the larger id
	c := ping(5, 2, 4*time.Minute)
	orphan := ping(6, 42, 5*time.Minute)
	deep := ping(7, 3, 6*time.Minute)

	trails := BuildTrails([]*model.Ping{deep, a, r1, orphan, c, b, r2})

	require.Len(t, trails, 2)
	assert.Equal(t, uint64(2), trails[0].Root.ID, "newest root first")
	assert.Equal(t, []uint64{5}, ids(trails[0].Responses))
	assert.Equal(t, uint64(1), trails[1].Root.ID)
	assert.Equal(t, []uint64{4, 3}, ids(trails[1].Responses), "responses oldest first")

	for _, tr := range trails {
		for _, r := range tr.Responses {
			require.NotNil(t, r.ParentPingID)
			assert.Equal(t, tr.Root.ID, *r.ParentPingID)
		}
	}
}

func TestBuildTrailsIdempotent(t *testing.T) {
	in := []*model.Ping{ping(1, 0, 0), ping(2, 1, time.Second), ping(3, 0, 2*time.Second), ping(4, 3, 3*time.Second)}
	snapshot := append([]*model.Ping(nil), in...)

	first := BuildTrails(in)
	second := BuildTrails(in)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, in, "input order untouched")
}

func TestBuildTrailsEmpty(t *testing.T) {
	assert.Empty(t, BuildTrails(nil))

	trails := BuildTrails([]*model.Ping{ping(1, 0, 0)})
	require.Len(t, trails, 1)
	assert.NotNil(t, trails[0].Responses)
	assert.Empty(t, trails[0].Responses)
}

func TestFlattenTrails(t *testing.T) {
	root := ping(1, 0, 0)
	child := ping(2, 1, time.Minute)
	grandchild := ping(3, 2, 2*time.Minute)
	orphanChain := ping(4, 99, 3*time.Minute)
	orphanChild := ping(5, 4, 4*time.Minute)

	trails := FlattenTrails([]*model.Ping{root, child, grandchild, orphanChain, orphanChild})

	require.Len(t, trails, 1)
	assert.Equal(t, root, trails[0].Root)
	assert.Equal(t, []uint64{2, 3}, ids(trails[0].Responses))
}

func TestFlattenTrailsCycle(t *testing.T) {
	x := ping(1, 2, 0)
	y := ping(2, 1, time.Second)
	assert.Empty(t, FlattenTrails([]*model.Ping{x, y}))
}
