package convoy

import (
	"math"
	"time"
)

// spawnConvoy places the convoy away from players. Returns false when the
// host could not create the entity.
func (c *Controller) spawnConvoy(ev *EventData, candidates []PlayerID) bool {
	pos := c.convoySpawnPosition(candidates)
	h := c.entities.CreateEntity(c.cfg.Convoy.Prefab, pos)
	if h == 0 {
		return false
	}
	c.entities.SetHealth(h, c.cfg.Convoy.Health)
	ev.Convoy = h
	return true
}

// convoySpawnPosition tries a few random points at least spawnClearance away
// from every player and falls back to the map origin.
func (c *Controller) convoySpawnPosition(candidates []PlayerID) Vec3 {
	halfX, halfZ := c.entities.Bounds()
	for i := 0; i < spawnAttempts; i++ {
		pos := Vec3{
			X: (c.rng.Float64()*2 - 1) * halfX,
			Z: (c.rng.Float64()*2 - 1) * halfZ,
		}
		pos.Y = c.entities.Height(pos)

		free := true
		for _, id := range candidates {
			if p, ok := c.players.Position(id); ok && p.Dist(pos) < spawnClearance {
				free = false
				break
			}
		}
		if free {
			return pos
		}
	}
	origin := Vec3{}
	origin.Y = c.entities.Height(origin)
	return origin
}

// generateWaypoints lays WaypointCount points evenly on a circle around the
// convoy's spawn position, snapped to terrain height.
func (c *Controller) generateWaypoints(ev *EventData) {
	center, _ := c.entities.Position(ev.Convoy)
	n := c.cfg.Convoy.WaypointCount
	ev.Waypoints = make([]Vec3, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi / float64(n) * float64(i)
		wp := onCircle(center, angle, c.cfg.Convoy.WaypointRadius)
		wp.Y = c.entities.Height(wp)
		ev.Waypoints = append(ev.Waypoints, wp)
	}
	ev.CurrentWaypoint = 0
}

// tickPatrol moves the convoy one step toward its current waypoint. The loop
// never ends on its own; teardown cancels the task.
func (c *Controller) tickPatrol(time.Time) {
	ev := c.active
	if ev == nil || len(ev.Waypoints) == 0 {
		return
	}
	pos, ok := c.entities.Position(ev.Convoy)
	if !ok {
		return
	}
	target := ev.Waypoints[ev.CurrentWaypoint]
	dir := target.Sub(pos).Normalized()
	next := pos.Add(dir.Scale(c.cfg.Convoy.Speed * patrolInterval.Seconds()))
	c.entities.SetPosition(ev.Convoy, next)

	if next.Dist(target) < arrivalThreshold {
		ev.CurrentWaypoint = (ev.CurrentWaypoint + 1) % len(ev.Waypoints)
	}
}
