package system

import (
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	coresys "github.com/l1jgo/convoy/internal/core/system"
)

// DispatchSystem delivers the lifecycle events emitted during this tick.
// Phase 2 (Dispatch).
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *DispatchSystem) Update(_ time.Time) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
