package convoy

import (
	"fmt"
	"time"
)

// Status is a read-only summary for the admin console.
type Status struct {
	State          State
	RunID          string
	Phase          int // one-based; 0 when idle
	Phases         int
	PhaseRemaining time.Duration
	Participants   int
	Holder         PlayerID
	DomeCreated    bool
	Hostiles       int
	NextAutoStart  time.Time // zero when not armed
}

func (c *Controller) Status(now time.Time) Status {
	st := Status{State: c.state, Phases: len(c.cfg.Phases)}
	if due, ok := c.tasks.NextDue(taskAutoStart); ok {
		st.NextAutoStart = due
	}
	ev := c.active
	if ev == nil {
		return st
	}
	st.RunID = ev.RunID
	st.Phase = ev.CurrentPhase + 1
	st.PhaseRemaining = c.currentPhase().Duration() - now.Sub(ev.PhaseStartTime)
	st.Participants = c.registry.Len()
	st.Holder = ev.SpecialItemHolder
	st.DomeCreated = ev.DomeCreated
	st.Hostiles = len(ev.SpawnedHostiles)
	return st
}

func (s Status) String() string {
	if s.State != StateActive {
		if s.NextAutoStart.IsZero() {
			return fmt.Sprintf("state=%s", s.State)
		}
		return fmt.Sprintf("state=%s next_auto_start=%s", s.State, s.NextAutoStart.Format(time.TimeOnly))
	}
	return fmt.Sprintf("state=%s run=%s phase=%d/%d remaining=%s participants=%d holder=%d dome=%t hostiles=%d",
		s.State, s.RunID, s.Phase, s.Phases, FormatRemaining(s.PhaseRemaining),
		s.Participants, s.Holder, s.DomeCreated, s.Hostiles)
}
