package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/l1jgo/convoy/internal/convoy"
)

// --- Helpers ---

func parsePlayer(out Replier, s string) (convoy.PlayerID, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		out.Send(fmt.Sprintf("invalid player id %q", s))
		return 0, false
	}
	return convoy.PlayerID(id), true
}

func parseFloats(out Replier, args ...string) ([]float64, bool) {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			out.Send(fmt.Sprintf("invalid number %q", a))
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

// groundPos places (x, z) on the terrain.
func groundPos(deps *Deps, x, z float64) convoy.Vec3 {
	pos := convoy.Vec3{X: x, Z: z}
	pos.Y = deps.World.Height(pos)
	return pos
}

// --- Commands ---

// gmWho lists online players, or one player looked up by name.
func gmWho(out Replier, args []string, _ time.Time, deps *Deps) {
	var ids []convoy.PlayerID
	if len(args) == 1 {
		p := deps.World.GetByName(args[0])
		if p == nil || !p.Online {
			out.Send(fmt.Sprintf("player %q is not online", args[0]))
			return
		}
		ids = []convoy.PlayerID{p.ID}
	} else {
		ids = deps.World.Candidates()
		if len(ids) == 0 {
			out.Send("no players online")
			return
		}
		out.Send(fmt.Sprintf("%d online", deps.World.OnlineCount()))
	}
	for _, id := range ids {
		p := deps.World.GetPlayer(id)
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d %s pos=(%.0f, %.0f)", id, p.Name, p.Pos.X, p.Pos.Z)
		if p.Dead {
			sb.WriteString(" dead")
		}
		if pd, ok := deps.Controller.Player(id); ok {
			fmt.Fprintf(&sb, " economy=%d", pd.CurrentEconomy)
			if pd.HasSpecialItem {
				sb.WriteString(" holder")
			}
			if pd.IsOutsideDome {
				sb.WriteString(" outside")
			}
		}
		out.Send(sb.String())
	}
}

func gmJoin(out Replier, args []string, _ time.Time, deps *Deps) {
	if len(args) != 2 && len(args) != 4 {
		out.Send("usage: join <player> <name> [x z]")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	var pos convoy.Vec3
	if len(args) == 4 {
		xz, ok := parseFloats(out, args[2], args[3])
		if !ok {
			return
		}
		pos = groundPos(deps, xz[0], xz[1])
	}
	deps.World.AddPlayer(id, args[1], pos)
	out.Send(fmt.Sprintf("player %d (%s) online", id, args[1]))
}

func gmMove(out Replier, args []string, _ time.Time, deps *Deps) {
	if len(args) != 3 {
		out.Send("usage: move <player> <x> <z>")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	xz, ok := parseFloats(out, args[1], args[2])
	if !ok {
		return
	}
	pos := groundPos(deps, xz[0], xz[1])
	if !deps.World.MovePlayer(id, pos) {
		out.Send(fmt.Sprintf("player %d cannot move", id))
		return
	}
	out.Send(fmt.Sprintf("player %d moved to (%.0f, %.0f)", id, pos.X, pos.Z))
}

// gmDamage hits an entity. "convoy" targets the active event's convoy.
func gmDamage(out Replier, args []string, now time.Time, deps *Deps) {
	if len(args) != 2 {
		out.Send("usage: damage <convoy|handle> <amount>")
		return
	}
	var h convoy.EntityHandle
	if strings.EqualFold(args[0], "convoy") {
		ev := deps.Controller.Active()
		if ev == nil {
			out.Send("No active event.")
			return
		}
		h = ev.Convoy
	} else {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			out.Send(fmt.Sprintf("invalid handle %q", args[0]))
			return
		}
		h = convoy.EntityHandle(v)
	}
	amt, ok := parseFloats(out, args[1])
	if !ok {
		return
	}

	// the hook sees the hit before a lethal blow removes the entity
	deps.Controller.OnEntityDamaged(h, now)
	destroyed, ok := deps.World.DamageEntity(h, amt[0])
	switch {
	case !ok:
		out.Send(fmt.Sprintf("entity %d not found", h))
	case destroyed:
		out.Send(fmt.Sprintf("entity %d destroyed", h))
	default:
		out.Send(fmt.Sprintf("entity %d hp=%.0f", h, deps.World.Entity(h).HP))
	}
}

func gmKill(out Replier, args []string, now time.Time, deps *Deps) {
	if len(args) != 1 {
		out.Send("usage: kill <player>")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	if !deps.World.KillPlayer(id) {
		out.Send(fmt.Sprintf("player %d cannot be killed", id))
		return
	}
	deps.Controller.OnPlayerDeath(id, now)
	out.Send(fmt.Sprintf("player %d killed", id))
}

// gmPickup has a player pick up an item; without an item ID it targets the
// active event's special item.
func gmPickup(out Replier, args []string, now time.Time, deps *Deps) {
	if len(args) != 1 && len(args) != 2 {
		out.Send("usage: pickup <player> [item]")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	var item convoy.ItemID
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			out.Send(fmt.Sprintf("invalid item %q", args[1]))
			return
		}
		item = convoy.ItemID(v)
	} else if ev := deps.Controller.Active(); ev != nil {
		item = ev.SpecialItem
	}
	if item == 0 || !deps.Controller.CanPickup(id, item) || !deps.World.PickUp(id, item) {
		out.Send(fmt.Sprintf("player %d cannot pick up item %d", id, item))
		return
	}
	deps.Controller.OnItemPickup(id, item, now)
	out.Send(fmt.Sprintf("player %d picked up item %d", id, item))
}

func gmQuit(out Replier, args []string, now time.Time, deps *Deps) {
	if len(args) != 1 {
		out.Send("usage: quit <player>")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	if p := deps.World.GetPlayer(id); p == nil || !p.Online {
		out.Send(fmt.Sprintf("player %d is not online", id))
		return
	}
	// the hook runs while the player is still placed so a held item drops
	// where they stood
	deps.Controller.OnPlayerDisconnected(id, now)
	deps.World.SetOffline(id)
	out.Send(fmt.Sprintf("player %d disconnected", id))
}

// gmDome lists who stands inside the active event's dome zone.
func gmDome(out Replier, _ []string, _ time.Time, deps *Deps) {
	ev := deps.Controller.Active()
	if ev == nil || !ev.DomeCreated {
		out.Send("no dome formed")
		return
	}
	z := deps.World.Zone(ev.ZoneID)
	if z == nil {
		out.Send(fmt.Sprintf("dome %s is not registered with the zone service", ev.ZoneID))
		return
	}
	ids := deps.World.ZoneOccupants(ev.ZoneID)
	out.Send(fmt.Sprintf("dome %s center=(%.0f, %.0f) radius=%.0f occupants=%v",
		z.ID, z.Opts.Center.X, z.Opts.Center.Z, z.Opts.Radius, ids))
}

// gmWorld summarizes what the event has placed in the world.
func gmWorld(out Replier, _ []string, _ time.Time, deps *Deps) {
	cs := deps.Event.Convoy
	out.Send(fmt.Sprintf("online=%d entities=%d zones=%d",
		deps.World.OnlineCount(), deps.World.EntityCount(), deps.World.ZoneCount()))

	convoys := deps.World.EntitiesByPrefab(cs.Prefab)
	hostiles := deps.World.EntitiesByPrefab(cs.HostilePrefab)
	out.Send(fmt.Sprintf("convoys=%d hostiles=%d", len(convoys), len(hostiles)))
	for _, e := range convoys {
		out.Send(fmt.Sprintf("convoy %d hp=%.0f/%.0f at (%.0f, %.0f)", e.Handle, e.HP, e.MaxHP, e.Pos.X, e.Pos.Z))
	}
	for _, it := range deps.World.ItemsByShortname(cs.SpecialItem) {
		if it.OnGround() {
			out.Send(fmt.Sprintf("item %d %s on ground at (%.0f, %.0f)", it.ID, it.Shortname, it.Pos.X, it.Pos.Z))
		} else {
			out.Send(fmt.Sprintf("item %d %s held by %d", it.ID, it.Shortname, it.Holder))
		}
	}
}
