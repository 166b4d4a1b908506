package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/mission-control/internal/model"
)

func TestClassify(t *testing.T) {
	created := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		age  time.Duration
		want model.PingStatus
	}{
		{age: -time.Minute, want: model.StatusActive},
		{age: 0, want: model.StatusActive},
		{age: 4 * time.Minute, want: model.StatusActive},
		{age: 5*time.Minute - time.Nanosecond, want: model.StatusActive},
		{age: 5 * time.Minute, want: model.StatusTransmitted},
		{age: 30 * time.Minute, want: model.StatusTransmitted},
		{age: 60 * time.Minute, want: model.StatusCompleted},
		{age: 2 * time.Hour, want: model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(created, created.Add(tt.age)))
		})
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	clock := newFakeClock()
	created := clock.Now()
	rank := map[model.PingStatus]int{model.StatusActive: 0, model.StatusTransmitted: 1, model.StatusCompleted: 2}

	prev := Classify(created, clock.Now())
	for i := 0; i < 90; i++ {
		clock.Advance(time.Minute)
		cur := Classify(created, clock.Now())
		assert.GreaterOrEqual(t, rank[cur], rank[prev])
		prev = cur
	}
	assert.Equal(t, model.StatusCompleted, prev)
}

func TestViewPings(t *testing.T) {
	now := t0.Add(10 * time.Minute)
	views := ViewPings([]*model.Ping{ping(1, 0, 0), ping(2, 1, 8*time.Minute)}, now)
	assert.Equal(t, model.StatusTransmitted, views[0].Status)
	assert.Equal(t, model.StatusActive, views[1].Status)
}
