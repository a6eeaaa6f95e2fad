package world

import (
	"sort"

	"github.com/l1jgo/convoy/internal/convoy"
)

// PlayerInfo holds in-memory data for a player currently known to the server.
// Accessed only from the game loop goroutine, no locks needed.
type PlayerInfo struct {
	ID     convoy.PlayerID
	Name   string
	Pos    convoy.Vec3
	Online bool
	Dead   bool
	Banned bool // never offered to live events

	Inventory map[convoy.ItemID]struct{}
}

// EntityInfo is a spawned non-player entity (convoy vehicle, hostile NPC).
type EntityInfo struct {
	Handle convoy.EntityHandle
	Prefab string
	Pos    convoy.Vec3
	HP     float64
	MaxHP  float64
}

// TerrainFunc returns the ground height at (x, z).
type TerrainFunc func(x, z float64) float64

// State tracks players, entities and item instances.
// Single-goroutine access only (game loop).
type State struct {
	players map[convoy.PlayerID]*PlayerInfo
	byName  map[string]*PlayerInfo

	pool     *HandlePool
	entities map[convoy.EntityHandle]*EntityInfo

	items map[convoy.ItemID]*Item
	zones map[string]*Zone
	aoi   *AOIGrid // online players only

	halfX, halfZ float64
	terrain      TerrainFunc
}

// NewState creates a world whose playable area spans [-halfX, halfX] by
// [-halfZ, halfZ]. A nil terrain is flat at height 0.
func NewState(halfX, halfZ float64, terrain TerrainFunc) *State {
	if terrain == nil {
		terrain = func(float64, float64) float64 { return 0 }
	}
	return &State{
		players:  make(map[convoy.PlayerID]*PlayerInfo),
		byName:   make(map[string]*PlayerInfo),
		pool:     NewHandlePool(),
		entities: make(map[convoy.EntityHandle]*EntityInfo),
		items:    make(map[convoy.ItemID]*Item),
		zones:    make(map[string]*Zone),
		aoi:      NewAOIGrid(),
		halfX:    halfX,
		halfZ:    halfZ,
		terrain:  terrain,
	}
}

// ---------- players ----------

// AddPlayer registers a player (or brings a known one back online) at pos.
func (s *State) AddPlayer(id convoy.PlayerID, name string, pos convoy.Vec3) *PlayerInfo {
	p, ok := s.players[id]
	if !ok {
		p = &PlayerInfo{ID: id, Inventory: make(map[convoy.ItemID]struct{})}
		s.players[id] = p
	}
	if p.Name != "" && p.Name != name {
		delete(s.byName, p.Name)
	}
	p.Name = name
	if p.Online {
		s.aoi.Move(id, p.Pos, pos)
	} else {
		s.aoi.Add(id, pos)
	}
	p.Pos = pos
	p.Online = true
	p.Dead = false
	s.byName[name] = p
	return p
}

// SetOffline marks a player offline; the record is kept so a reconnect
// restores the name mapping.
func (s *State) SetOffline(id convoy.PlayerID) bool {
	p, ok := s.players[id]
	if !ok || !p.Online {
		return false
	}
	p.Online = false
	s.aoi.Remove(id, p.Pos)
	return true
}

func (s *State) GetPlayer(id convoy.PlayerID) *PlayerInfo {
	return s.players[id]
}

// GetByName returns the player with this name, or nil.
func (s *State) GetByName(name string) *PlayerInfo {
	return s.byName[name]
}

// MovePlayer teleports a player. Dead or offline players stay put.
func (s *State) MovePlayer(id convoy.PlayerID, pos convoy.Vec3) bool {
	p, ok := s.players[id]
	if !ok || !p.Online || p.Dead {
		return false
	}
	s.aoi.Move(id, p.Pos, pos)
	p.Pos = pos
	return true
}

// KillPlayer marks a player dead. Returns false if already dead or unknown.
func (s *State) KillPlayer(id convoy.PlayerID) bool {
	p, ok := s.players[id]
	if !ok || !p.Online || p.Dead {
		return false
	}
	p.Dead = true
	return true
}

// OnlineCount returns the number of online players.
func (s *State) OnlineCount() int {
	n := 0
	for _, p := range s.players {
		if p.Online {
			n++
		}
	}
	return n
}

// Candidates lists online, unbanned players in ID order.
func (s *State) Candidates() []convoy.PlayerID {
	ids := make([]convoy.PlayerID, 0, len(s.players))
	for id, p := range s.players {
		if p.Online && !p.Banned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Name returns the display name of a known player.
func (s *State) Name(id convoy.PlayerID) (string, bool) {
	p, ok := s.players[id]
	if !ok {
		return "", false
	}
	return p.Name, true
}

// Respawn revives an online player at pos.
func (s *State) Respawn(id convoy.PlayerID, pos convoy.Vec3) bool {
	p, ok := s.players[id]
	if !ok || !p.Online {
		return false
	}
	p.Dead = false
	s.aoi.Move(id, p.Pos, pos)
	p.Pos = pos
	return true
}

// Players exposes the player side of the state under the convoy.Players
// contract, whose Position takes a player ID.
func (s *State) Players() PlayerView { return PlayerView{s} }

// PlayerView adapts State to convoy.Players.
type PlayerView struct{ s *State }

func (v PlayerView) Candidates() []convoy.PlayerID                  { return v.s.Candidates() }
func (v PlayerView) Name(id convoy.PlayerID) (string, bool)          { return v.s.Name(id) }
func (v PlayerView) Respawn(id convoy.PlayerID, pos convoy.Vec3) bool { return v.s.Respawn(id, pos) }

// Position returns an online player's position.
func (v PlayerView) Position(id convoy.PlayerID) (convoy.Vec3, bool) {
	p, ok := v.s.players[id]
	if !ok || !p.Online {
		return convoy.Vec3{}, false
	}
	return p.Pos, true
}

// ---------- entities ----------

// CreateEntity spawns an entity. An empty prefab or a position outside the
// playable area fails with the zero handle.
func (s *State) CreateEntity(prefab string, pos convoy.Vec3) convoy.EntityHandle {
	if prefab == "" || !s.InBounds(pos) {
		return 0
	}
	h := s.pool.Create()
	s.entities[h] = &EntityInfo{Handle: h, Prefab: prefab, Pos: pos}
	return h
}

func (s *State) DestroyEntity(h convoy.EntityHandle) {
	if s.pool.Destroy(h) {
		delete(s.entities, h)
	}
}

func (s *State) Alive(h convoy.EntityHandle) bool { return s.pool.Alive(h) }

func (s *State) Entity(h convoy.EntityHandle) *EntityInfo {
	if !s.pool.Alive(h) {
		return nil
	}
	return s.entities[h]
}

func (s *State) Position(h convoy.EntityHandle) (convoy.Vec3, bool) {
	e := s.Entity(h)
	if e == nil {
		return convoy.Vec3{}, false
	}
	return e.Pos, true
}

func (s *State) SetPosition(h convoy.EntityHandle, pos convoy.Vec3) bool {
	e := s.Entity(h)
	if e == nil {
		return false
	}
	e.Pos = pos
	return true
}

func (s *State) SetHealth(h convoy.EntityHandle, hp float64) {
	if e := s.Entity(h); e != nil {
		e.HP = hp
		if hp > e.MaxHP {
			e.MaxHP = hp
		}
	}
}

// DamageEntity subtracts amount from an entity's health and destroys it at
// zero. Returns false for stale handles.
func (s *State) DamageEntity(h convoy.EntityHandle, amount float64) (destroyed, ok bool) {
	e := s.Entity(h)
	if e == nil {
		return false, false
	}
	e.HP -= amount
	if e.HP <= 0 {
		s.DestroyEntity(h)
		return true, true
	}
	return false, true
}

// EntitiesByPrefab lists live entities spawned from prefab.
func (s *State) EntitiesByPrefab(prefab string) []*EntityInfo {
	var out []*EntityInfo
	for _, e := range s.entities {
		if e.Prefab == prefab {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (s *State) EntityCount() int { return len(s.entities) }

func (s *State) Height(pos convoy.Vec3) float64 { return s.terrain(pos.X, pos.Z) }

func (s *State) Bounds() (float64, float64) { return s.halfX, s.halfZ }

// InBounds reports whether pos lies inside the playable area.
func (s *State) InBounds(pos convoy.Vec3) bool {
	return pos.X >= -s.halfX && pos.X <= s.halfX && pos.Z >= -s.halfZ && pos.Z <= s.halfZ
}

// ---------- items ----------

// SpawnItem places a new instance on the ground.
func (s *State) SpawnItem(shortname string, pos convoy.Vec3) convoy.ItemID {
	if shortname == "" {
		return 0
	}
	it := &Item{ID: NextItemID(), Shortname: shortname, Pos: pos}
	s.items[it.ID] = it
	return it.ID
}

// PickUp moves a ground item into a player's inventory. Returns false if the
// item is carried by someone else, gone, or the player cannot act.
func (s *State) PickUp(id convoy.PlayerID, item convoy.ItemID) bool {
	it, ok := s.items[item]
	p := s.players[id]
	if !ok || p == nil || !p.Online || p.Dead || !it.OnGround() {
		return false
	}
	it.Holder = id
	p.Inventory[item] = struct{}{}
	return true
}

// DropItem takes the instance from whoever carries it and puts it on the
// ground at pos.
func (s *State) DropItem(item convoy.ItemID, pos convoy.Vec3) bool {
	it, ok := s.items[item]
	if !ok {
		return false
	}
	if it.Holder != 0 {
		if p := s.players[it.Holder]; p != nil {
			delete(p.Inventory, item)
		}
		it.Holder = 0
	}
	it.Pos = pos
	return true
}

func (s *State) DestroyItem(item convoy.ItemID) {
	it, ok := s.items[item]
	if !ok {
		return
	}
	if p := s.players[it.Holder]; p != nil {
		delete(p.Inventory, item)
	}
	delete(s.items, item)
}

func (s *State) Item(item convoy.ItemID) *Item { return s.items[item] }

// ItemsByShortname lists every instance of one item type.
func (s *State) ItemsByShortname(shortname string) []*Item {
	var out []*Item
	for _, it := range s.items {
		if it.Shortname == shortname {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
