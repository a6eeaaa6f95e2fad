package system

import "time"

// Phase defines execution ordering within a single server tick.
type Phase int

const (
	PhaseInput    Phase = iota // 0: drain admin console queues
	PhaseUpdate                // 1: event logic (task table)
	PhaseDispatch              // 2: deliver lifecycle events
	PhaseOutput                // 3: flush console replies
	PhasePersist               // 4: write event history
)

// System is the interface every game-loop system implements. now is the
// single clock reading taken for the whole tick.
type System interface {
	Phase() Phase
	Update(now time.Time)
}
