package convoy

import (
	"math"
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	"go.uber.org/zap"
)

// tickPhase advances the phase once its duration has elapsed and refreshes
// every panel so the countdown stays current.
func (c *Controller) tickPhase(at time.Time) {
	ev := c.active
	if ev == nil || !ev.IsActive {
		return
	}
	if at.Sub(ev.PhaseStartTime) >= c.currentPhase().Duration() {
		if !c.nextPhase(at) {
			return
		}
	}
	c.refreshAll(at)
}

// nextPhase moves to the following phase. Running out of phases ends the
// event, which is the normal completion path; it then returns false.
func (c *Controller) nextPhase(at time.Time) bool {
	ev := c.active
	if ev.CurrentPhase >= len(c.cfg.Phases)-1 {
		c.end(at, EndCompleted)
		return false
	}

	ev.CurrentPhase++
	ev.PhaseStartTime = at
	phase := c.currentPhase()

	// a lower cap than the previous phase pulls balances down with it
	for _, id := range c.registry.IDs() {
		if pd, ok := c.registry.Get(id); ok && pd.CurrentEconomy > phase.MaxEconomy {
			pd.CurrentEconomy = phase.MaxEconomy
		}
	}

	c.broadcastToParticipants(c.printer.Sprintf("Phase %d has begun! (%ds, Max: %d %s)",
		ev.CurrentPhase+1, phase.DurationSec, phase.MaxEconomy, c.cfg.Economy.CurrencyName))

	if phase.SpawnHostiles && phase.HostileCount > 0 {
		c.spawnHostiles(phase.HostileCount)
	}

	c.log.Info("活動階段推進",
		zap.String("run", ev.RunID),
		zap.Int("phase", ev.CurrentPhase+1),
		zap.Int("max_economy", phase.MaxEconomy))
	c.emit(event.PhaseAdvanced{RunID: ev.RunID, Phase: ev.CurrentPhase, MaxEconomy: phase.MaxEconomy, At: at})
	return true
}

// spawnHostiles places count hostiles at random points inside the dome.
// Each spawn is attempted once; failures are skipped.
func (c *Controller) spawnHostiles(count int) {
	ev := c.active
	spawned := 0
	for i := 0; i < count; i++ {
		h := c.entities.CreateEntity(c.cfg.Convoy.HostilePrefab, c.randomPointInDome())
		if h == 0 {
			continue
		}
		ev.SpawnedHostiles = append(ev.SpawnedHostiles, h)
		spawned++
	}
	if spawned < count {
		c.log.Warn("部分敵人生成失敗", zap.Int("requested", count), zap.Int("spawned", spawned))
	}
	c.broadcastToParticipants(c.printer.Sprintf("Hostiles have entered the dome! (%d enemies spawned)", spawned))
}

// randomPointInDome picks a random angle and a distance in
// [minHostileDist, radius*0.8] around the dome anchor, snapped to terrain.
func (c *Controller) randomPointInDome() Vec3 {
	lo, hi := minHostileDist, c.cfg.Dome.Radius*0.8
	if hi < lo {
		lo, hi = hi, lo
	}
	angle := c.rng.Float64() * 2 * math.Pi
	d := lo + c.rng.Float64()*(hi-lo)
	pos := onCircle(c.domeAnchor(), angle, d)
	pos.Y = c.entities.Height(pos)
	return pos
}
