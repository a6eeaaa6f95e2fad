package system

import (
	"time"

	coresys "github.com/l1jgo/convoy/internal/core/system"
	"github.com/l1jgo/convoy/internal/net"
)

// OutputSystem flushes buffered console replies to each session's writer.
// Phase 3 (Output).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Time) {
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
