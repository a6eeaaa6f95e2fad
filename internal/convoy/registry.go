package convoy

import (
	"sort"
	"time"
)

// PlayerEventData is one enrolled player's event state.
type PlayerEventData struct {
	CurrentEconomy int
	IsOutsideDome  bool
	LastExitTime   time.Time // meaningful only while IsOutsideDome
	HasSpecialItem bool
}

// Registry tracks enrolled players.
type Registry struct {
	players map[PlayerID]*PlayerEventData
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[PlayerID]*PlayerEventData)}
}

// Add enrolls id, returning the existing record if already enrolled.
func (r *Registry) Add(id PlayerID) *PlayerEventData {
	if pd, ok := r.players[id]; ok {
		return pd
	}
	pd := &PlayerEventData{}
	r.players[id] = pd
	return pd
}

func (r *Registry) Remove(id PlayerID) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

func (r *Registry) Get(id PlayerID) (*PlayerEventData, bool) {
	pd, ok := r.players[id]
	return pd, ok
}

func (r *Registry) Has(id PlayerID) bool {
	_, ok := r.players[id]
	return ok
}

func (r *Registry) Len() int { return len(r.players) }

// IDs returns a sorted snapshot, safe to iterate while removing.
func (r *Registry) IDs() []PlayerID {
	ids := make([]PlayerID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) Clear() {
	clear(r.players)
}
