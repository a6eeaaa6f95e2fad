package world

import (
	"sync/atomic"

	"github.com/l1jgo/convoy/internal/convoy"
)

// itemIDCounter generates item instance IDs. Instance IDs are never reused,
// so an ID names one physical item for the life of the process.
var itemIDCounter atomic.Uint64

// NextItemID returns a fresh item instance ID.
func NextItemID() convoy.ItemID {
	return convoy.ItemID(itemIDCounter.Add(1))
}

// Item is one physical item instance. It is either on the ground at Pos or
// carried by Holder.
type Item struct {
	ID        convoy.ItemID
	Shortname string
	Pos       convoy.Vec3
	Holder    convoy.PlayerID // 0 = on the ground
}

// OnGround reports whether nobody carries the item.
func (it *Item) OnGround() bool { return it.Holder == 0 }
