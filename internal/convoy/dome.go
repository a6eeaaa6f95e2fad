package convoy

import (
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	"go.uber.org/zap"
)

const (
	colorAlert   = "#FF0000"
	colorWelcome = "#00FF00"
)

// OnEntityDamaged is the damage hook. The first hit on the convoy forms the
// dome at the convoy's position; the center never moves afterwards.
func (c *Controller) OnEntityDamaged(h EntityHandle, now time.Time) {
	ev := c.active
	if c.state != StateActive || ev == nil || h == 0 || h != ev.Convoy {
		return
	}
	if ev.DomeCreated {
		return
	}
	c.createDome(now)
}

func (c *Controller) createDome(now time.Time) {
	ev := c.active
	center, ok := c.entities.Position(ev.Convoy)
	if !ok {
		return
	}
	ev.DomeCenter = center
	ev.DomeCreated = true

	if c.zones == nil {
		if !c.warnedZones {
			c.warnedZones = true
			c.log.Warn("區域服務不可用，圓頂僅在記憶體中運作")
		}
	} else {
		dome := c.cfg.Dome
		err := c.zones.CreateOrUpdateZone(ev.ZoneID, ZoneOptions{
			Name:     ev.ZoneID,
			Radius:   dome.Radius,
			Center:   center,
			PVPGod:   !dome.PVPEnabled,
			PVEGod:   dome.InventoryProtection,
			SleepGod: dome.InventoryProtection,
			Undestr:  dome.InventoryProtection,
			NoBuild:  true,
			NoTP:     true,
			NoKits:   true,
		})
		if err != nil {
			c.log.Warn("建立區域失敗，圓頂僅在記憶體中運作", zap.String("zone", ev.ZoneID), zap.Error(err))
		}
	}

	c.broadcastToParticipants("A protective dome has formed around the convoy!")
	c.tasks.Every(taskDome, now, monitorInterval, c.tickDome)
	c.log.Info("圓頂形成",
		zap.String("run", ev.RunID),
		zap.Float64("x", center.X), zap.Float64("y", center.Y), zap.Float64("z", center.Z))
}

// tickDome drives each participant's Inside / OutsideGrace / Evicted state
// from their distance to the dome center.
func (c *Controller) tickDome(at time.Time) {
	ev := c.active
	if ev == nil || !ev.DomeCreated {
		return
	}
	dome := c.cfg.Dome
	limit := dome.ExitTimeLimit()

	for _, id := range c.registry.IDs() {
		pd, ok := c.registry.Get(id)
		if !ok {
			continue
		}
		pos, ok := c.players.Position(id)
		if !ok {
			continue
		}
		dist := pos.Dist(ev.DomeCenter)

		if dist <= dome.Radius {
			if pd.IsOutsideDome {
				pd.IsOutsideDome = false
				c.notifier.Notify(id, "Welcome back to the dome!", colorWelcome)
			}
			continue
		}

		if !pd.IsOutsideDome {
			pd.IsOutsideDome = true
			pd.LastExitTime = at
			c.notifier.Notify(id,
				c.printer.Sprintf("You have left the dome! Return within %.0f seconds or lose your progress!", limit.Seconds()),
				c.cfg.UI.MainColor)
			continue
		}

		elapsed := at.Sub(pd.LastExitTime)
		if elapsed >= limit {
			c.evict(id, at)
			continue
		}
		if dist > dome.ExitWarningDistance {
			remaining := limit - elapsed
			c.notifier.Notify(id, c.printer.Sprintf("Return to dome! %.0fs remaining", remaining.Seconds()), colorAlert)
		}
	}
}

// evict removes a player who stayed outside past the limit, sending the
// special item back to the convoy first if they held it.
func (c *Controller) evict(id PlayerID, at time.Time) {
	pd, ok := c.registry.Get(id)
	if !ok {
		return
	}
	if pd.HasSpecialItem {
		c.forceReturn()
		c.broadcastToParticipants(c.playerName(id) + " stayed outside the dome too long! The special item has returned to the convoy.")
	}
	c.removePlayer(id)
	c.log.Info("玩家離開圓頂過久，移出活動", zap.Uint64("player", uint64(id)))
	c.emit(event.PlayerEvicted{RunID: c.active.RunID, PlayerID: uint64(id), At: at})
}

// domeAnchor is where in-dome spawns are centred: the dome center once it
// exists, otherwise the convoy's current position.
func (c *Controller) domeAnchor() Vec3 {
	ev := c.active
	if ev.DomeCreated {
		return ev.DomeCenter
	}
	if pos, ok := c.entities.Position(ev.Convoy); ok {
		return pos
	}
	return ev.DomeCenter
}
