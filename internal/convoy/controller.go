package convoy

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/convoy/internal/core/event"
	coresys "github.com/l1jgo/convoy/internal/core/system"
	"github.com/l1jgo/convoy/internal/data"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Precondition failures returned by Start/Stop.
var (
	ErrEventActive      = errors.New("event is already active")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrSpawnFailed      = errors.New("failed to spawn convoy")
	ErrNoActiveEvent    = errors.New("no active event")
)

// State is the lifecycle state of the controller.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateEnding:
		return "Ending"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// End reasons recorded in EventEnded.
const (
	EndCompleted = "completed"
	EndStopped   = "stopped"
)

const (
	taskPatrol    = "convoy.patrol"
	taskPhase     = "convoy.phase"
	taskEconomy   = "convoy.economy"
	taskDome      = "convoy.dome"
	taskAutoStart = "convoy.autostart"
	taskRespawn   = "convoy.respawn."
)

// EventData is the state of the one running event.
type EventData struct {
	RunID             string
	ZoneID            string
	Convoy            EntityHandle
	DomeCenter        Vec3
	Waypoints         []Vec3
	CurrentWaypoint   int
	CurrentPhase      int
	StartTime         time.Time
	PhaseStartTime    time.Time
	SpecialItem       ItemID
	SpecialItemHolder PlayerID
	Participants      map[PlayerID]struct{}
	SpawnedHostiles   []EntityHandle
	DomeCreated       bool
	IsActive          bool
}

// Deps holds the collaborators injected into the controller. Zones, Wallet,
// Rewards and Bus are optional.
type Deps struct {
	Config        *data.EventConfig
	Entities      Entities
	Players       Players
	Items         Items
	Zones         Zones
	Wallet        Wallet
	Notifier      Notifier
	Panels        Panels
	Rewards       RewardCalculator
	Bus           *event.Bus
	Rand          *rand.Rand
	WalletTimeout time.Duration
	Log           *zap.Logger
}

// Controller owns the event lifecycle and every piece of mutable event state.
// All methods must be called from the game loop goroutine.
type Controller struct {
	cfg      *data.EventConfig
	entities Entities
	players  Players
	items    Items
	zones    Zones
	wallet   Wallet
	notifier Notifier
	panels   Panels
	rewards  RewardCalculator
	bus      *event.Bus
	rng      *rand.Rand
	walletTO time.Duration
	log      *zap.Logger
	printer  *message.Printer

	state    State
	active   *EventData
	registry *Registry
	tasks    *coresys.Tasks
	tracked  map[ItemID]struct{} // identity table of event collectibles

	warnedZones  bool
	warnedWallet bool
}

func NewController(d Deps) *Controller {
	c := &Controller{
		cfg:      d.Config,
		entities: d.Entities,
		players:  d.Players,
		items:    d.Items,
		zones:    d.Zones,
		wallet:   d.Wallet,
		notifier: d.Notifier,
		panels:   d.Panels,
		rewards:  d.Rewards,
		bus:      d.Bus,
		rng:      d.Rand,
		walletTO: d.WalletTimeout,
		log:      d.Log,
		printer:  message.NewPrinter(language.English),
		registry: NewRegistry(),
		tasks:    coresys.NewTasks(),
		tracked:  make(map[ItemID]struct{}),
	}
	if c.cfg == nil {
		c.cfg = data.DefaultEventConfig()
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.panels == nil {
		c.panels = nopPanels{}
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.walletTO <= 0 {
		c.walletTO = 5 * time.Second
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Init arms the first auto-start timer. Called once at boot.
func (c *Controller) Init(now time.Time) {
	if c.cfg.Event.AutoStart && c.cfg.Event.Enabled {
		c.armAutoStart(now)
	}
}

// Advance runs every task due at or before now.
func (c *Controller) Advance(now time.Time) {
	c.tasks.Advance(now)
}

func (c *Controller) State() State { return c.state }

// Active returns the running event, or nil. Callers must not mutate it.
func (c *Controller) Active() *EventData { return c.active }

// Player returns an enrolled player's event state.
func (c *Controller) Player(id PlayerID) (*PlayerEventData, bool) {
	return c.registry.Get(id)
}

// Start runs the Starting transition. On spawn failure everything is rolled
// back and the controller stays Idle.
func (c *Controller) Start(now time.Time) error {
	if c.state != StateIdle {
		return ErrEventActive
	}
	candidates := c.players.Candidates()
	if len(candidates) < c.cfg.Event.MinPlayers {
		return ErrNotEnoughPlayers
	}

	c.state = StateStarting
	ev := &EventData{
		RunID:          uuid.NewString(),
		ZoneID:         fmt.Sprintf("%s_%d", c.cfg.Dome.ZoneID, 1000+c.rng.Intn(9000)),
		StartTime:      now,
		PhaseStartTime: now,
		Participants:   make(map[PlayerID]struct{}),
	}
	c.active = ev

	if !c.spawnConvoy(ev, candidates) {
		c.log.Error("車隊生成失敗，活動取消", zap.String("prefab", c.cfg.Convoy.Prefab))
		c.active = nil
		c.state = StateIdle
		return ErrSpawnFailed
	}

	c.generateWaypoints(ev)
	c.tasks.Every(taskPatrol, now, patrolInterval, c.tickPatrol)

	c.enrollPlayers(candidates)

	c.tasks.Every(taskPhase, now, monitorInterval, c.tickPhase)
	c.tasks.Every(taskEconomy, now, c.cfg.Economy.AccrualInterval(), c.tickEconomy)

	c.spawnSpecialItem(ev)

	if c.cfg.Event.AnnounceToServer {
		c.notifier.Broadcast("A convoy has been spotted! Join the event for rewards!")
	}

	ev.IsActive = true
	c.state = StateActive
	c.refreshAll(now)

	c.log.Info("車隊活動開始",
		zap.String("run", ev.RunID),
		zap.Int("participants", c.registry.Len()),
		zap.Int("phases", len(c.cfg.Phases)))
	c.emit(event.EventStarted{RunID: ev.RunID, StartedAt: now, Participants: c.registry.Len()})
	return nil
}

// Stop ends the active event on request.
func (c *Controller) Stop(now time.Time) error {
	if c.state != StateActive {
		return ErrNoActiveEvent
	}
	c.end(now, EndStopped)
	return nil
}

// end runs the Ending transition and returns to Idle.
func (c *Controller) end(now time.Time, reason string) {
	if c.state != StateActive {
		return
	}
	c.state = StateEnding
	ev := c.active
	ev.IsActive = false

	// participants still waiting out the respawn delay come back now; their
	// tasks are cancelled below
	for _, id := range c.registry.IDs() {
		if _, pending := c.tasks.NextDue(respawnTask(id)); pending {
			c.respawnInDome(id)
		}
	}

	if ev.Convoy != 0 && c.entities.Alive(ev.Convoy) {
		c.entities.DestroyEntity(ev.Convoy)
	}
	if ev.DomeCreated && c.zones != nil {
		if err := c.zones.EraseZone(ev.ZoneID); err != nil {
			c.log.Warn("移除區域失敗", zap.String("zone", ev.ZoneID), zap.Error(err))
		}
	}
	for _, h := range ev.SpawnedHostiles {
		if c.entities.Alive(h) {
			c.entities.DestroyEntity(h)
		}
	}
	if ev.SpecialItem != 0 {
		c.items.DestroyItem(ev.SpecialItem)
		delete(c.tracked, ev.SpecialItem)
	}

	c.awardFinalRewards(now)

	for _, id := range c.registry.IDs() {
		c.panels.HideEventPanel(id)
	}
	c.registry.Clear()
	c.tasks.CancelAll()

	if c.cfg.Event.AnnounceToServer {
		c.notifier.Broadcast("The convoy event has ended!")
	}

	c.log.Info("車隊活動結束",
		zap.String("run", ev.RunID),
		zap.String("reason", reason),
		zap.Int("phase", ev.CurrentPhase+1))
	c.emit(event.EventEnded{RunID: ev.RunID, EndedAt: now, Reason: reason, FinalPhase: ev.CurrentPhase})

	c.active = nil
	c.state = StateIdle

	if c.cfg.Event.AutoStart && c.cfg.Event.Enabled {
		c.armAutoStart(now)
	}
}

func (c *Controller) armAutoStart(now time.Time) {
	c.tasks.After(taskAutoStart, now, c.cfg.Event.StartCooldown(), c.autoStart)
}

// autoStart fires when the cooldown elapses. A failed attempt re-arms the
// cooldown so the event keeps trying.
func (c *Controller) autoStart(at time.Time) {
	if !c.cfg.Event.Enabled {
		return
	}
	err := c.Start(at)
	switch {
	case err == nil:
	case errors.Is(err, ErrEventActive):
		// a manually started event is running; end() re-arms
	default:
		c.log.Info("自動開始未成功，稍後重試", zap.Error(err))
		c.armAutoStart(at)
	}
}

// enrollPlayers adds candidates, down-selecting with the seeded RNG when
// oversubscribed.
func (c *Controller) enrollPlayers(candidates []PlayerID) {
	picked := append([]PlayerID(nil), candidates...)
	sort.Slice(picked, func(i, j int) bool { return picked[i] < picked[j] })
	if limit := c.cfg.Event.MaxPlayers; len(picked) > limit {
		c.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
		picked = picked[:limit]
	}
	for _, id := range picked {
		c.registry.Add(id)
		c.active.Participants[id] = struct{}{}
		c.notifier.Notify(id, "You have been added to the Convoy Event!", c.cfg.UI.MainColor)
	}
}

// removePlayer deregisters a participant and clears their panel.
func (c *Controller) removePlayer(id PlayerID) {
	pd, ok := c.registry.Get(id)
	if !ok {
		return
	}
	if pd.HasSpecialItem {
		c.clearHolder()
	}
	c.registry.Remove(id)
	delete(c.active.Participants, id)
	c.tasks.Cancel(respawnTask(id))
	c.panels.HideEventPanel(id)
	c.notifier.Notify(id, "You have been removed from the event.", colorAlert)
}

func (c *Controller) currentPhase() data.PhaseSettings {
	return c.cfg.Phases[c.active.CurrentPhase]
}

func (c *Controller) playerName(id PlayerID) string {
	if name, ok := c.players.Name(id); ok {
		return name
	}
	return "Unknown"
}

func (c *Controller) broadcastToParticipants(msg string) {
	for _, id := range c.registry.IDs() {
		c.notifier.Chat(id, msg)
	}
}

func (c *Controller) emit(ev any) {
	if c.bus != nil {
		event.Emit(c.bus, ev)
	}
}

func respawnTask(id PlayerID) string {
	return fmt.Sprintf("%s%d", taskRespawn, id)
}
