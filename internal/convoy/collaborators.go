package convoy

import (
	"context"
	"time"
)

// PlayerID identifies a player; 0 is never a valid player.
type PlayerID uint64

// EntityHandle is an opaque host entity reference; 0 means none. Handles may
// go stale when the host destroys the entity.
type EntityHandle uint64

// ItemID identifies one physical item instance; 0 means none.
type ItemID uint64

// Entities is the host's entity spawn/query service.
type Entities interface {
	CreateEntity(prefab string, pos Vec3) EntityHandle // 0 on failure
	DestroyEntity(h EntityHandle)
	Alive(h EntityHandle) bool
	Position(h EntityHandle) (Vec3, bool)
	SetPosition(h EntityHandle, pos Vec3) bool
	SetHealth(h EntityHandle, hp float64)
	Height(pos Vec3) float64
	// Bounds returns the half extents of the playable area on X and Z.
	Bounds() (halfX, halfZ float64)
}

// Players exposes online players. Candidates returns players currently
// allowed to join (online and permitted).
type Players interface {
	Candidates() []PlayerID
	Position(id PlayerID) (Vec3, bool)
	Name(id PlayerID) (string, bool)
	Respawn(id PlayerID, pos Vec3) bool
}

// Items places physical item instances in the world.
type Items interface {
	SpawnItem(shortname string, pos Vec3) ItemID // 0 on failure
	// DropItem takes the instance out of whatever inventory holds it and
	// places it on the ground at pos.
	DropItem(id ItemID, pos Vec3) bool
	DestroyItem(id ItemID)
}

// ZoneOptions mirrors the zone service's flag set.
type ZoneOptions struct {
	Name     string
	Radius   float64
	Center   Vec3
	Eject    bool
	PVPGod   bool
	PVEGod   bool
	SleepGod bool
	Undestr  bool
	NoBuild  bool
	NoTP     bool
	NoKits   bool
}

// Zones is the optional region service backing the dome.
type Zones interface {
	CreateOrUpdateZone(id string, opts ZoneOptions) error
	EraseZone(id string) error
}

// Wallet is the optional external currency store.
type Wallet interface {
	Deposit(ctx context.Context, id PlayerID, amount int) error
}

// Notifier delivers one-way messages. Nothing it returns is consulted.
type Notifier interface {
	Notify(id PlayerID, msg, color string) // on-screen notice
	Chat(id PlayerID, msg string)          // event chat line
	Broadcast(msg string)                  // server-wide announcement
}

// Panel is the full content of a player's event panel.
type Panel struct {
	Economy       int    `json:"economy"`
	EconomyCap    int    `json:"economy_cap"`
	Currency      string `json:"currency"`
	PhaseLabel    string `json:"phase"`
	TimeRemaining string `json:"time_remaining"`
	HolderName    string `json:"holder"`
	MainColor     string `json:"main_color"`
	AccentColor   string `json:"accent_color"`
	TextColor     string `json:"text_color"`
}

// Panels renders event panels. Refreshes always hide then show, so a show
// fully replaces the previous panel.
type Panels interface {
	ShowEventPanel(id PlayerID, p Panel)
	HideEventPanel(id PlayerID)
}

// RewardCalculator converts accrued currency into the final payout.
type RewardCalculator interface {
	CalcFinalReward(economy, phase, maxEconomy int) int
}

type nopNotifier struct{}

func (nopNotifier) Notify(PlayerID, string, string) {}
func (nopNotifier) Chat(PlayerID, string)           {}
func (nopNotifier) Broadcast(string)                {}

type nopPanels struct{}

func (nopPanels) ShowEventPanel(PlayerID, Panel) {}
func (nopPanels) HideEventPanel(PlayerID)        {}

// Tick rates and fixed distances.
const (
	patrolInterval   = 100 * time.Millisecond
	monitorInterval  = time.Second
	respawnDelay     = 2 * time.Second
	arrivalThreshold = 5.0
	itemLift         = 2.0
	minHostileDist   = 10.0
	spawnClearance   = 200.0
	spawnAttempts    = 10
)
