package system

import (
	"time"

	"github.com/l1jgo/convoy/internal/convoy"
	coresys "github.com/l1jgo/convoy/internal/core/system"
)

// ConvoySystem advances the event's task table once per tick. Phase 1 (Update).
type ConvoySystem struct {
	ctrl *convoy.Controller
}

func NewConvoySystem(ctrl *convoy.Controller) *ConvoySystem {
	return &ConvoySystem{ctrl: ctrl}
}

func (s *ConvoySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ConvoySystem) Update(now time.Time) {
	s.ctrl.Advance(now)
}
