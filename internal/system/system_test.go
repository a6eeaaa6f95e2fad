package system

import (
	"context"
	"errors"
	gonet "net"
	"testing"
	"time"

	"github.com/l1jgo/convoy/internal/config"
	"github.com/l1jgo/convoy/internal/convoy"
	"github.com/l1jgo/convoy/internal/core/event"
	coresys "github.com/l1jgo/convoy/internal/core/system"
	"github.com/l1jgo/convoy/internal/data"
	"github.com/l1jgo/convoy/internal/handler"
	"github.com/l1jgo/convoy/internal/net"
	"github.com/l1jgo/convoy/internal/world"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type fakeSource struct {
	newCh  chan *net.Session
	deadCh chan uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{newCh: make(chan *net.Session, 4), deadCh: make(chan uint64, 4)}
}

func (f *fakeSource) NewSessions() <-chan *net.Session { return f.newCh }
func (f *fakeSource) DeadSessions() <-chan uint64      { return f.deadCh }

func newSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	a, b := gonet.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	sess := net.NewSession(a, id, net.SessionOptions{InSize: 8, OutSize: 8}, zap.NewNop())
	sess.SetState(net.StateAuthenticated)
	return sess
}

func drainOut(sess *net.Session) []string {
	var lines []string
	for {
		select {
		case l := <-sess.OutQueue:
			lines = append(lines, l)
		default:
			return lines
		}
	}
}

type recStore struct {
	rows []string
	fail bool
}

func (r *recStore) rec(kind string) error {
	if r.fail {
		return errors.New("db down")
	}
	r.rows = append(r.rows, kind)
	return nil
}

func (r *recStore) RecordStart(context.Context, event.EventStarted) error  { return r.rec("start") }
func (r *recStore) RecordPhase(context.Context, event.PhaseAdvanced) error { return r.rec("phase") }
func (r *recStore) RecordReward(context.Context, event.RewardGranted) error {
	return r.rec("reward")
}
func (r *recStore) RecordEviction(context.Context, event.PlayerEvicted) error {
	return r.rec("evict")
}
func (r *recStore) RecordEnd(context.Context, event.EventEnded) error { return r.rec("end") }

// loop wires the full tick pipeline around a real world and controller.
type loop struct {
	runner  *coresys.Runner
	source  *fakeSource
	store   *net.SessionStore
	history *recStore
	persist *PersistenceSystem
	ctrl    *convoy.Controller
	world   *world.State
}

func newLoop(t *testing.T, players int) *loop {
	t.Helper()
	cfg := data.DefaultEventConfig()
	cfg.Event.AutoStart = false
	cfg.Event.MinPlayers = 1

	ws := world.NewState(2000, 2000, nil)
	for i := 1; i <= players; i++ {
		ws.AddPlayer(convoy.PlayerID(i), "p", convoy.Vec3{X: float64(i)})
	}
	bus := event.NewBus()
	ctrl := convoy.NewController(convoy.Deps{
		Config:   cfg,
		Entities: ws,
		Players:  ws.Players(),
		Items:    ws,
		Zones:    ws,
		Bus:      bus,
		Log:      zap.NewNop(),
	})
	deps := &handler.Deps{Config: &config.Config{}, Event: cfg, Controller: ctrl, World: ws, Log: zap.NewNop()}
	reg := handler.NewRegistry(deps)
	handler.RegisterAll(reg)

	l := &loop{
		runner:  coresys.NewRunner(),
		source:  newFakeSource(),
		store:   net.NewSessionStore(),
		history: &recStore{},
		ctrl:    ctrl,
		world:   ws,
	}
	l.persist = NewPersistenceSystem(bus, l.history, time.Second, zap.NewNop())
	// registration order is deliberately scrambled; the runner sorts by phase
	l.runner.Register(l.persist)
	l.runner.Register(NewOutputSystem(l.store))
	l.runner.Register(NewDispatchSystem(bus))
	l.runner.Register(NewConvoySystem(ctrl))
	l.runner.Register(NewInputSystem(l.source, reg, l.store, 2, zap.NewNop()))
	return l
}

func TestConsoleLineRoundTrip(t *testing.T) {
	l := newLoop(t, 2)
	sess := newSession(t, 1)
	l.source.newCh <- sess
	sess.InQueue <- "start"
	sess.InQueue <- "bogus"

	l.runner.Tick(t0)

	if l.store.Count() != 1 {
		t.Fatalf("expected session to be accepted")
	}
	got := drainOut(sess)
	if len(got) != 2 || got[0] != "Convoy event started successfully!" {
		t.Fatalf("unexpected replies %v", got)
	}
	if l.ctrl.State() != convoy.StateActive {
		t.Fatalf("expected active event, got %s", l.ctrl.State())
	}
	// EventStarted was emitted, delivered and written in the same tick
	if len(l.history.rows) != 1 || l.history.rows[0] != "start" {
		t.Fatalf("unexpected history rows %v", l.history.rows)
	}
}

func TestInputRespectsPerTickLimit(t *testing.T) {
	l := newLoop(t, 0)
	sess := newSession(t, 1)
	l.source.newCh <- sess
	for i := 0; i < 5; i++ {
		sess.InQueue <- "status"
	}
	l.runner.Tick(t0)
	if got := drainOut(sess); len(got) != 2 {
		t.Fatalf("expected 2 replies in the first tick, got %d", len(got))
	}
	l.runner.Tick(t0.Add(100 * time.Millisecond))
	l.runner.Tick(t0.Add(200 * time.Millisecond))
	if got := drainOut(sess); len(got) != 3 {
		t.Fatalf("expected remaining 3 replies, got %d", len(got))
	}
}

func TestInputSkipsUnauthenticatedAndDropsDead(t *testing.T) {
	l := newLoop(t, 0)
	pending := newSession(t, 1)
	pending.SetState(net.StateLogin)
	live := newSession(t, 2)
	l.source.newCh <- pending
	l.source.newCh <- live
	pending.InQueue <- "status"

	l.runner.Tick(t0)
	if got := drainOut(pending); len(got) != 0 {
		t.Fatalf("unauthenticated session got replies %v", got)
	}

	l.source.deadCh <- 2
	live.Close()
	l.runner.Tick(t0.Add(time.Second))
	if l.store.Count() != 1 || l.store.Get(2) != nil {
		t.Fatalf("expected dead session removed, count=%d", l.store.Count())
	}
}

func TestHistoryFollowsEventLifecycle(t *testing.T) {
	l := newLoop(t, 1)
	if err := l.ctrl.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := l.ctrl.Stop(t0.Add(time.Second)); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// nothing reaches the store until the bus is dispatched
	if len(l.history.rows) != 0 {
		t.Fatalf("expected no rows before dispatch, got %v", l.history.rows)
	}
	l.runner.Tick(t0.Add(time.Second))
	if len(l.history.rows) < 2 || l.history.rows[0] != "start" || l.history.rows[len(l.history.rows)-1] != "end" {
		t.Fatalf("unexpected history rows %v", l.history.rows)
	}
}

func TestPersistenceDropsFailedWrites(t *testing.T) {
	bus := event.NewBus()
	store := &recStore{fail: true}
	ps := NewPersistenceSystem(bus, store, time.Second, zap.NewNop())
	event.Emit(bus, event.EventStarted{RunID: "r1", StartedAt: t0})
	event.Emit(bus, event.EventEnded{RunID: "r1", EndedAt: t0, Reason: convoy.EndStopped})
	NewDispatchSystem(bus).Update(t0)
	if ps.Pending() != 2 {
		t.Fatalf("expected 2 pending rows, got %d", ps.Pending())
	}
	ps.Update(t0)
	if ps.Pending() != 0 || len(store.rows) != 0 {
		t.Fatalf("expected failed rows to be dropped")
	}
}
