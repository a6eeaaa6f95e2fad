package system

import (
	"time"

	coresys "github.com/l1jgo/convoy/internal/core/system"
	"github.com/l1jgo/convoy/internal/handler"
	"github.com/l1jgo/convoy/internal/net"
	"go.uber.org/zap"
)

// SessionSource hands new and dead console sessions to the game loop.
// *net.Server implements it.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
}

// InputSystem drains command lines from all console sessions and dispatches
// them through the command registry. Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *handler.Registry
	store      *net.SessionStore
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(source SessionSource, registry *handler.Registry, store *net.SessionStore, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 1
	}
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(now time.Time) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
			s.log.Debug("主控台加入", zap.Uint64("session", sess.ID))
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.source.DeadSessions():
			if s.store.Get(id) != nil {
				s.store.Remove(id)
				s.log.Info("管理主控台斷線", zap.Uint64("session", id))
			}
		default:
			goto doneDead
		}
	}
doneDead:

	// Drain lines from each session (up to maxPerTick per session)
	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			s.store.Remove(sess.ID)
			return
		}
		if sess.State() != net.StateAuthenticated {
			return
		}
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case line := <-sess.InQueue:
				s.log.Debug("主控台指令", zap.Uint64("session", sess.ID), zap.String("line", line))
				if err := s.registry.Dispatch(sess, line, now); err != nil {
					sess.Send(err.Error())
				}
			default:
				return
			}
		}
	})
}
