package world

import (
	"fmt"
	"sort"

	"github.com/l1jgo/convoy/internal/convoy"
)

// Zone is a circular rule area registered by a live event.
type Zone struct {
	ID   string
	Opts convoy.ZoneOptions
}

// Contains reports whether pos lies inside the zone.
func (z *Zone) Contains(pos convoy.Vec3) bool {
	return z.Opts.Center.Dist(pos) <= z.Opts.Radius
}

// CreateOrUpdateZone registers a zone or replaces its options.
func (s *State) CreateOrUpdateZone(id string, opts convoy.ZoneOptions) error {
	if id == "" {
		return fmt.Errorf("zone id is empty")
	}
	if opts.Radius <= 0 {
		return fmt.Errorf("zone %s: radius must be positive", id)
	}
	s.zones[id] = &Zone{ID: id, Opts: opts}
	return nil
}

// EraseZone removes a zone. Erasing an unknown zone is an error.
func (s *State) EraseZone(id string) error {
	if _, ok := s.zones[id]; !ok {
		return fmt.Errorf("zone %s not found", id)
	}
	delete(s.zones, id)
	return nil
}

func (s *State) Zone(id string) *Zone { return s.zones[id] }

func (s *State) ZoneCount() int { return len(s.zones) }

// ZoneOccupants lists the online players standing inside a zone, in ID order.
func (s *State) ZoneOccupants(id string) []convoy.PlayerID {
	z := s.zones[id]
	if z == nil {
		return nil
	}
	var ids []convoy.PlayerID
	for _, pid := range s.aoi.Nearby(z.Opts.Center, z.Opts.Radius) {
		if p := s.players[pid]; p != nil && p.Online && z.Contains(p.Pos) {
			ids = append(ids, pid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
