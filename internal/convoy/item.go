package convoy

import (
	"time"

	"go.uber.org/zap"
)

// spawnSpecialItem drops the contested collectible next to the convoy and
// records the instance in the identity table.
func (c *Controller) spawnSpecialItem(ev *EventData) {
	pos, ok := c.entities.Position(ev.Convoy)
	if !ok {
		return
	}
	id := c.items.SpawnItem(c.cfg.Convoy.SpecialItem, pos.Up(itemLift))
	if id == 0 {
		c.log.Warn("特殊道具生成失敗", zap.String("item", c.cfg.Convoy.SpecialItem))
		return
	}
	c.tracked[id] = struct{}{}
	ev.SpecialItem = id
}

// IsTracked reports whether item is the event's collectible. Other instances
// of the same item type are never tracked.
func (c *Controller) IsTracked(item ItemID) bool {
	_, ok := c.tracked[item]
	return ok
}

// CanPickup is the pre-pickup hook. While an event runs, only participants
// may take the tracked collectible; everything else is unrestricted.
func (c *Controller) CanPickup(id PlayerID, item ItemID) bool {
	if c.state != StateActive || !c.IsTracked(item) {
		return true
	}
	return c.registry.Has(id)
}

// setHolder moves the holder slot and flags together.
func (c *Controller) setHolder(id PlayerID) {
	c.clearHolder()
	pd, ok := c.registry.Get(id)
	if !ok {
		return
	}
	pd.HasSpecialItem = true
	c.active.SpecialItemHolder = id
}

func (c *Controller) clearHolder() {
	ev := c.active
	if pd, ok := c.registry.Get(ev.SpecialItemHolder); ok {
		pd.HasSpecialItem = false
	}
	ev.SpecialItemHolder = 0
}

// OnItemPickup is the pickup hook.
func (c *Controller) OnItemPickup(id PlayerID, item ItemID, now time.Time) {
	if c.state != StateActive || !c.IsTracked(item) || !c.registry.Has(id) {
		return
	}
	if c.active.SpecialItemHolder == id {
		return
	}
	c.setHolder(id)
	c.broadcastToParticipants(c.playerName(id) + " now holds the special item!")
	c.refreshAll(now)
}

// OnPlayerDeath is the death hook: a holder drops the item where they fell,
// and every participant respawns inside the dome after a short delay.
func (c *Controller) OnPlayerDeath(id PlayerID, now time.Time) {
	if c.state != StateActive || !c.registry.Has(id) {
		return
	}
	pd, _ := c.registry.Get(id)
	if pd.HasSpecialItem {
		c.dropAtPlayer(id)
		c.clearHolder()
		c.broadcastToParticipants(c.playerName(id) + " has dropped the special item!")
		c.refreshAll(now)
	}
	c.tasks.After(respawnTask(id), now, respawnDelay, func(at time.Time) {
		c.respawnInDome(id)
	})
}

// OnPlayerDisconnected is the disconnect hook. The player leaves the event
// for good, so no respawn is scheduled.
func (c *Controller) OnPlayerDisconnected(id PlayerID, now time.Time) {
	if c.state != StateActive || !c.registry.Has(id) {
		return
	}
	pd, _ := c.registry.Get(id)
	held := pd.HasSpecialItem
	if held {
		c.dropAtPlayer(id)
		c.clearHolder()
	}
	c.removePlayer(id)
	if held {
		c.refreshAll(now)
	}
}

func (c *Controller) dropAtPlayer(id PlayerID) {
	ev := c.active
	pos, ok := c.players.Position(id)
	if !ok {
		// position unknown: send it home instead of losing it
		c.forceReturn()
		return
	}
	if !c.items.DropItem(ev.SpecialItem, pos.Up(1)) {
		c.log.Warn("特殊道具掉落失敗", zap.Uint64("player", uint64(id)))
	}
}

// forceReturn puts the item back beside the convoy and clears the holder.
// With no holder it does nothing.
func (c *Controller) forceReturn() {
	ev := c.active
	if ev == nil || ev.SpecialItemHolder == 0 {
		return
	}
	pos, ok := c.entities.Position(ev.Convoy)
	if !ok {
		pos = ev.DomeCenter
	}
	if !c.items.DropItem(ev.SpecialItem, pos.Up(itemLift)) {
		c.log.Warn("特殊道具歸還失敗", zap.Uint64("item", uint64(ev.SpecialItem)))
	}
	c.clearHolder()
}

func (c *Controller) respawnInDome(id PlayerID) {
	if c.active == nil || !c.registry.Has(id) {
		return
	}
	if !c.players.Respawn(id, c.randomPointInDome()) {
		return
	}
	c.notifier.Notify(id, "You have respawned inside the dome!", c.cfg.UI.MainColor)
}
