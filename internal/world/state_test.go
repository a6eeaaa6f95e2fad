package world

import (
	"testing"

	"github.com/l1jgo/convoy/internal/convoy"
)

var (
	_ convoy.Entities = (*State)(nil)
	_ convoy.Items    = (*State)(nil)
	_ convoy.Zones    = (*State)(nil)
	_ convoy.Players  = PlayerView{}
)

func TestCandidatesSkipOfflineAndBanned(t *testing.T) {
	s := NewState(1000, 1000, nil)
	s.AddPlayer(3, "cara", convoy.Vec3{})
	s.AddPlayer(1, "abel", convoy.Vec3{})
	s.AddPlayer(2, "bryn", convoy.Vec3{}).Banned = true
	s.AddPlayer(4, "dax", convoy.Vec3{})
	s.SetOffline(4)

	got := s.Candidates()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected candidates %v", got)
	}
	if _, ok := s.Players().Position(4); ok {
		t.Fatalf("offline player should have no position")
	}
	if s.GetByName("cara") == nil || s.OnlineCount() != 3 {
		t.Fatalf("name index or online count wrong")
	}
}

func TestEntityLifecycle(t *testing.T) {
	s := NewState(100, 100, func(x, z float64) float64 { return x / 10 })
	if h := s.CreateEntity("van", convoy.Vec3{X: 500}); h != 0 {
		t.Fatalf("spawn outside bounds should fail")
	}
	h := s.CreateEntity("van", convoy.Vec3{X: 10})
	if h == 0 {
		t.Fatalf("spawn failed")
	}
	s.SetHealth(h, 100)
	if s.Height(convoy.Vec3{X: 50}) != 5 {
		t.Fatalf("terrain not applied")
	}

	if destroyed, ok := s.DamageEntity(h, 40); destroyed || !ok {
		t.Fatalf("40 damage should not destroy")
	}
	if destroyed, ok := s.DamageEntity(h, 60); !destroyed || !ok {
		t.Fatalf("lethal damage should destroy")
	}
	if s.Alive(h) || s.SetPosition(h, convoy.Vec3{}) {
		t.Fatalf("stale handle still usable")
	}
	if _, ok := s.DamageEntity(h, 1); ok {
		t.Fatalf("damage on a stale handle should report !ok")
	}
	if s.EntityCount() != 0 {
		t.Fatalf("entity not removed")
	}
}

func TestItemPickupAndDrop(t *testing.T) {
	s := NewState(100, 100, nil)
	s.AddPlayer(1, "abel", convoy.Vec3{})
	s.AddPlayer(2, "bryn", convoy.Vec3{})
	id := s.SpawnItem("metal.facemask", convoy.Vec3{Y: 2})
	other := s.SpawnItem("metal.facemask", convoy.Vec3{})
	if id == other {
		t.Fatalf("instances must have distinct IDs")
	}

	if !s.PickUp(1, id) {
		t.Fatalf("pickup failed")
	}
	if s.PickUp(2, id) {
		t.Fatalf("carried item cannot be picked up")
	}
	if _, ok := s.GetPlayer(1).Inventory[id]; !ok {
		t.Fatalf("item not in inventory")
	}

	spot := convoy.Vec3{X: 7, Y: 1}
	if !s.DropItem(id, spot) {
		t.Fatalf("drop failed")
	}
	it := s.Item(id)
	if !it.OnGround() || it.Pos != spot || len(s.GetPlayer(1).Inventory) != 0 {
		t.Fatalf("drop did not clear the carrier: %+v", it)
	}

	s.DestroyItem(id)
	if s.Item(id) != nil || s.DropItem(id, spot) {
		t.Fatalf("destroyed item still present")
	}
	if n := len(s.ItemsByShortname("metal.facemask")); n != 1 {
		t.Fatalf("expected one remaining instance, got %d", n)
	}
}

func TestDeadPlayersRespawn(t *testing.T) {
	s := NewState(100, 100, nil)
	s.AddPlayer(1, "abel", convoy.Vec3{})
	if !s.KillPlayer(1) || s.KillPlayer(1) {
		t.Fatalf("kill should succeed once")
	}
	if s.MovePlayer(1, convoy.Vec3{X: 1}) {
		t.Fatalf("dead players cannot move")
	}
	if !s.Players().Respawn(1, convoy.Vec3{X: 3}) || s.GetPlayer(1).Dead {
		t.Fatalf("respawn failed")
	}
	if pos, _ := s.Players().Position(1); pos.X != 3 {
		t.Fatalf("respawn position not applied")
	}
}
