package convoy

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	"github.com/l1jgo/convoy/internal/data"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

type fakeEntity struct {
	prefab string
	pos    Vec3
	hp     float64
}

type fakePlayer struct {
	name   string
	pos    Vec3
	online bool
}

// fakeWorld implements Entities, Players and Items.
type fakeWorld struct {
	nextHandle EntityHandle
	entities   map[EntityHandle]*fakeEntity
	failPrefab string

	players  map[PlayerID]*fakePlayer
	respawns []PlayerID

	nextItem  ItemID
	ground    map[ItemID]Vec3
	destroyed map[ItemID]bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		entities:  make(map[EntityHandle]*fakeEntity),
		players:   make(map[PlayerID]*fakePlayer),
		ground:    make(map[ItemID]Vec3),
		destroyed: make(map[ItemID]bool),
	}
}

func (w *fakeWorld) addPlayer(id PlayerID, name string, pos Vec3) {
	w.players[id] = &fakePlayer{name: name, pos: pos, online: true}
}

func (w *fakeWorld) move(id PlayerID, pos Vec3) { w.players[id].pos = pos }

func (w *fakeWorld) CreateEntity(prefab string, pos Vec3) EntityHandle {
	if prefab == w.failPrefab {
		return 0
	}
	w.nextHandle++
	w.entities[w.nextHandle] = &fakeEntity{prefab: prefab, pos: pos}
	return w.nextHandle
}

func (w *fakeWorld) DestroyEntity(h EntityHandle) { delete(w.entities, h) }

func (w *fakeWorld) Alive(h EntityHandle) bool {
	_, ok := w.entities[h]
	return ok
}

func (w *fakeWorld) Position(h EntityHandle) (Vec3, bool) {
	e, ok := w.entities[h]
	if !ok {
		return Vec3{}, false
	}
	return e.pos, true
}

func (w *fakeWorld) SetPosition(h EntityHandle, pos Vec3) bool {
	e, ok := w.entities[h]
	if !ok {
		return false
	}
	e.pos = pos
	return true
}

func (w *fakeWorld) SetHealth(h EntityHandle, hp float64) {
	if e, ok := w.entities[h]; ok {
		e.hp = hp
	}
}

func (w *fakeWorld) Height(Vec3) float64        { return 0 }
func (w *fakeWorld) Bounds() (float64, float64) { return 1000, 1000 }

func (w *fakeWorld) countPrefab(prefab string) int {
	n := 0
	for _, e := range w.entities {
		if e.prefab == prefab {
			n++
		}
	}
	return n
}

func (w *fakeWorld) Candidates() []PlayerID {
	var ids []PlayerID
	for id, p := range w.players {
		if p.online {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *fakeWorld) PlayerPosition(id PlayerID) (Vec3, bool) {
	p, ok := w.players[id]
	if !ok {
		return Vec3{}, false
	}
	return p.pos, true
}

func (w *fakeWorld) Name(id PlayerID) (string, bool) {
	p, ok := w.players[id]
	if !ok {
		return "", false
	}
	return p.name, true
}

func (w *fakeWorld) Respawn(id PlayerID, pos Vec3) bool {
	p, ok := w.players[id]
	if !ok || !p.online {
		return false
	}
	p.pos = pos
	w.respawns = append(w.respawns, id)
	return true
}

func (w *fakeWorld) SpawnItem(string, Vec3) ItemID {
	w.nextItem++
	return w.nextItem
}

func (w *fakeWorld) DropItem(id ItemID, pos Vec3) bool {
	if w.destroyed[id] {
		return false
	}
	w.ground[id] = pos
	return true
}

func (w *fakeWorld) DestroyItem(id ItemID) {
	w.destroyed[id] = true
	delete(w.ground, id)
}

// playersView adapts fakeWorld's player position lookup to the Players
// interface (Entities already owns Position).
type playersView struct{ *fakeWorld }

func (v playersView) Position(id PlayerID) (Vec3, bool) { return v.PlayerPosition(id) }

type fakeZones struct {
	created map[string]ZoneOptions
	erased  []string
	fail    bool
}

func (z *fakeZones) CreateOrUpdateZone(id string, opts ZoneOptions) error {
	if z.fail {
		return errors.New("zone service down")
	}
	if z.created == nil {
		z.created = make(map[string]ZoneOptions)
	}
	z.created[id] = opts
	return nil
}

func (z *fakeZones) EraseZone(id string) error {
	z.erased = append(z.erased, id)
	return nil
}

type fakeWallet struct {
	deposits map[PlayerID]int
	fail     bool
}

func (f *fakeWallet) Deposit(_ context.Context, id PlayerID, amount int) error {
	if f.fail {
		return errors.New("wallet offline")
	}
	if f.deposits == nil {
		f.deposits = make(map[PlayerID]int)
	}
	f.deposits[id] += amount
	return nil
}

type notice struct {
	id  PlayerID
	msg string
}

type recNotifier struct {
	notices    []notice
	chats      []notice
	broadcasts []string
}

func (n *recNotifier) Notify(id PlayerID, msg, _ string) { n.notices = append(n.notices, notice{id, msg}) }
func (n *recNotifier) Chat(id PlayerID, msg string)      { n.chats = append(n.chats, notice{id, msg}) }
func (n *recNotifier) Broadcast(msg string)              { n.broadcasts = append(n.broadcasts, msg) }

func (n *recNotifier) noticesFor(id PlayerID) []string {
	var out []string
	for _, x := range n.notices {
		if x.id == id {
			out = append(out, x.msg)
		}
	}
	return out
}

type recPanels struct {
	shown map[PlayerID]Panel
	shows map[PlayerID]int
	hides map[PlayerID]int
}

func newRecPanels() *recPanels {
	return &recPanels{
		shown: make(map[PlayerID]Panel),
		shows: make(map[PlayerID]int),
		hides: make(map[PlayerID]int),
	}
}

func (p *recPanels) ShowEventPanel(id PlayerID, panel Panel) {
	p.shown[id] = panel
	p.shows[id]++
}

func (p *recPanels) HideEventPanel(id PlayerID) {
	delete(p.shown, id)
	p.hides[id]++
}

type harness struct {
	c      *Controller
	world  *fakeWorld
	zones  *fakeZones
	wallet *fakeWallet
	notes  *recNotifier
	panels *recPanels
	bus    *event.Bus
	cfg    *data.EventConfig
}

type harnessOpt func(*Deps)

func withoutZones() harnessOpt  { return func(d *Deps)                        { d.Zones = nil } }
func withoutWallet() harnessOpt                        { return func(d *Deps) { d.Wallet = nil } }

// testConfig is the default event with auto-start off so tests control starts.
func testConfig() *data.EventConfig {
	cfg := data.DefaultEventConfig()
	cfg.Event.AutoStart = false
	return cfg
}

func newHarness(t *testing.T, cfg *data.EventConfig, players int, opts ...harnessOpt) *harness {
	t.Helper()
	h := &harness{
		world:  newFakeWorld(),
		zones:  &fakeZones{},
		wallet: &fakeWallet{},
		notes:  &recNotifier{},
		panels: newRecPanels(),
		bus:    event.NewBus(),
		cfg:    cfg,
	}
	for i := 1; i <= players; i++ {
		h.world.addPlayer(PlayerID(i), "player"+string(rune('A'-1+i)), Vec3{X: 5000, Z: 5000})
	}
	d := Deps{
		Config:   cfg,
		Entities: h.world,
		Players:  playersView{h.world},
		Items:    h.world,
		Zones:    h.zones,
		Wallet:   h.wallet,
		Notifier: h.notes,
		Panels:   h.panels,
		Bus:      h.bus,
		Rand:     rand.New(rand.NewSource(42)),
		Log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(&d)
	}
	h.c = NewController(d)
	return h
}

// startActive starts an event and fails the test on error.
func (h *harness) startActive(t *testing.T) *EventData {
	t.Helper()
	if err := h.c.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h.c.Active()
}

// convoyPos returns the convoy's current position.
func (h *harness) convoyPos(t *testing.T) Vec3 {
	t.Helper()
	pos, ok := h.world.Position(h.c.Active().Convoy)
	if !ok {
		t.Fatalf("convoy missing")
	}
	return pos
}

// formDome damages the convoy so the dome forms at its current position.
func (h *harness) formDome(t *testing.T, now time.Time) Vec3 {
	t.Helper()
	h.c.OnEntityDamaged(h.c.Active().Convoy, now)
	if !h.c.Active().DomeCreated {
		t.Fatalf("dome not created")
	}
	return h.c.Active().DomeCenter
}

// checkInvariants asserts the holder, membership and economy invariants.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()
	ev := h.c.Active()
	if ev == nil {
		if h.c.registry.Len() != 0 {
			t.Fatalf("registry not empty without an event: %d", h.c.registry.Len())
		}
		return
	}
	flagged := holders(h.c.registry)
	if len(flagged) > 1 {
		t.Fatalf("more than one holder: %v", flagged)
	}
	if len(flagged) == 1 && flagged[0] != ev.SpecialItemHolder {
		t.Fatalf("flagged holder %d != slot %d", flagged[0], ev.SpecialItemHolder)
	}
	if len(flagged) == 0 && ev.SpecialItemHolder != 0 {
		t.Fatalf("slot holds %d but nobody is flagged", ev.SpecialItemHolder)
	}
	if len(ev.Participants) != h.c.registry.Len() {
		t.Fatalf("participants %d != registry %d", len(ev.Participants), h.c.registry.Len())
	}
	limit := h.cfg.Phases[ev.CurrentPhase].MaxEconomy
	for id := range ev.Participants {
		pd, ok := h.c.registry.Get(id)
		if !ok {
			t.Fatalf("participant %d missing from registry", id)
		}
		if pd.CurrentEconomy < 0 || pd.CurrentEconomy > limit {
			t.Fatalf("player %d economy %d outside [0,%d]", id, pd.CurrentEconomy, limit)
		}
	}
	if ev.CurrentWaypoint < 0 || ev.CurrentWaypoint >= len(ev.Waypoints) {
		t.Fatalf("waypoint index %d out of range", ev.CurrentWaypoint)
	}
}

// drainBus returns every event emitted so far.
func (h *harness) drainBus() []any {
	var got []any
	event.Subscribe(h.bus, func(e event.EventStarted) { got = append(got, e) })
	event.Subscribe(h.bus, func(e event.EventEnded) { got = append(got, e) })
	event.Subscribe(h.bus, func(e event.PhaseAdvanced) { got = append(got, e) })
	event.Subscribe(h.bus, func(e event.RewardGranted) { got = append(got, e) })
	event.Subscribe(h.bus, func(e event.PlayerEvicted) { got = append(got, e) })
	h.bus.SwapBuffers()
	h.bus.DispatchAll()
	return got
}
