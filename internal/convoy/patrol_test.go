package convoy

import (
	"math"
	"testing"
	"time"
)

func TestWaypointsCircleTheSpawn(t *testing.T) {
	h := newHarness(t, testConfig(), 3)
	ev := h.startActive(t)
	center := h.convoyPos(t)
	for i, wp := range ev.Waypoints {
		if d := wp.Dist(center); math.Abs(d-h.cfg.Convoy.WaypointRadius) > 1e-6 {
			t.Fatalf("waypoint %d at distance %v, want %v", i, d, h.cfg.Convoy.WaypointRadius)
		}
	}
	if ev.CurrentWaypoint != 0 {
		t.Fatalf("patrol should start at waypoint 0")
	}
}

func TestConvoySpawnsAwayFromPlayers(t *testing.T) {
	h := newHarness(t, testConfig(), 3)
	// park every player on the origin; any free random point wins over the fallback
	for id := PlayerID(1); id <= 3; id++ {
		h.world.move(id, Vec3{})
	}
	h.startActive(t)
	pos := h.convoyPos(t)
	for id := PlayerID(1); id <= 3; id++ {
		p, _ := h.world.PlayerPosition(id)
		if p.Dist(pos) < spawnClearance {
			t.Fatalf("convoy spawned %v from player %d", p.Dist(pos), id)
		}
	}
}

func TestPatrolStepMovesTowardWaypoint(t *testing.T) {
	h := newHarness(t, testConfig(), 3)
	ev := h.startActive(t)
	start := h.convoyPos(t)
	target := ev.Waypoints[0]

	h.c.tickPatrol(t0)
	pos := h.convoyPos(t)
	step := h.cfg.Convoy.Speed * patrolInterval.Seconds()
	if d := pos.Dist(start); math.Abs(d-step) > 1e-9 {
		t.Fatalf("moved %v, want %v", d, step)
	}
	if pos.Dist(target) >= start.Dist(target) {
		t.Fatalf("convoy moved away from its waypoint")
	}
}

func TestPatrolWrapsAround(t *testing.T) {
	h := newHarness(t, testConfig(), 3)
	ev := h.startActive(t)
	last := len(ev.Waypoints) - 1
	ev.CurrentWaypoint = last
	h.world.SetPosition(ev.Convoy, ev.Waypoints[last].Add(Vec3{X: 1}))

	h.c.tickPatrol(t0)
	if ev.CurrentWaypoint != 0 {
		t.Fatalf("expected wrap to waypoint 0, got %d", ev.CurrentWaypoint)
	}
}

func TestPatrolIndexStaysInRange(t *testing.T) {
	cfg := testConfig()
	cfg.Convoy.WaypointCount = 3
	cfg.Convoy.WaypointRadius = 20
	cfg.Convoy.Speed = 40
	h := newHarness(t, cfg, 3)
	ev := h.startActive(t)

	seen := make(map[int]bool)
	for now := t0; now.Before(at(100 * time.Second)); now = now.Add(500 * time.Millisecond) {
		h.c.Advance(now)
		if ev.CurrentWaypoint < 0 || ev.CurrentWaypoint >= len(ev.Waypoints) {
			t.Fatalf("waypoint index %d out of range", ev.CurrentWaypoint)
		}
		seen[ev.CurrentWaypoint] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected the convoy to visit every waypoint, saw %v", seen)
	}
}

func TestPatrolIgnoresDestroyedConvoy(t *testing.T) {
	h := newHarness(t, testConfig(), 3)
	ev := h.startActive(t)
	h.world.DestroyEntity(ev.Convoy)
	h.c.tickPatrol(t0)
	if err := h.c.Stop(t0); err != nil {
		t.Fatalf("stop with a missing convoy: %v", err)
	}
}
