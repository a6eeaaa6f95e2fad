package system

import (
	"context"
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	coresys "github.com/l1jgo/convoy/internal/core/system"
	"go.uber.org/zap"
)

// HistoryStore records event lifecycle rows. *persist.HistoryRepo implements it.
type HistoryStore interface {
	RecordStart(ctx context.Context, e event.EventStarted) error
	RecordPhase(ctx context.Context, e event.PhaseAdvanced) error
	RecordReward(ctx context.Context, e event.RewardGranted) error
	RecordEviction(ctx context.Context, e event.PlayerEvicted) error
	RecordEnd(ctx context.Context, e event.EventEnded) error
}

// PersistenceSystem queues lifecycle events as the bus delivers them and
// writes them to the history store once per tick. Phase 4 (Persist).
type PersistenceSystem struct {
	store   HistoryStore
	timeout time.Duration
	pending []func(ctx context.Context) error
	log     *zap.Logger
}

func NewPersistenceSystem(bus *event.Bus, store HistoryStore, timeout time.Duration, log *zap.Logger) *PersistenceSystem {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &PersistenceSystem{store: store, timeout: timeout, log: log}
	event.Subscribe(bus, func(e event.EventStarted) {
		s.queue(func(ctx context.Context) error { return store.RecordStart(ctx, e) })
	})
	event.Subscribe(bus, func(e event.PhaseAdvanced) {
		s.queue(func(ctx context.Context) error { return store.RecordPhase(ctx, e) })
	})
	event.Subscribe(bus, func(e event.RewardGranted) {
		s.queue(func(ctx context.Context) error { return store.RecordReward(ctx, e) })
	})
	event.Subscribe(bus, func(e event.PlayerEvicted) {
		s.queue(func(ctx context.Context) error { return store.RecordEviction(ctx, e) })
	})
	event.Subscribe(bus, func(e event.EventEnded) {
		s.queue(func(ctx context.Context) error { return store.RecordEnd(ctx, e) })
	})
	return s
}

func (s *PersistenceSystem) queue(write func(ctx context.Context) error) {
	s.pending = append(s.pending, write)
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Time) {
	s.Flush()
}

// Flush writes every queued row in emission order. A failed write is logged
// and dropped; the event itself is never affected. Also called at shutdown.
func (s *PersistenceSystem) Flush() {
	if len(s.pending) == 0 {
		return
	}
	for _, write := range s.pending {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := write(ctx); err != nil {
			s.log.Error("寫入活動紀錄失敗", zap.Error(err))
		}
		cancel()
	}
	clear(s.pending)
	s.pending = s.pending[:0]
}

// Pending reports how many rows wait for the next flush.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }
