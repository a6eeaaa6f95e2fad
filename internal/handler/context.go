package handler

import (
	"time"

	"github.com/l1jgo/convoy/internal/config"
	"github.com/l1jgo/convoy/internal/convoy"
	"github.com/l1jgo/convoy/internal/data"
	"github.com/l1jgo/convoy/internal/persist"
	"github.com/l1jgo/convoy/internal/world"
	"go.uber.org/zap"
)

// Replier receives reply lines for one console command. *net.Session
// implements it.
type Replier interface {
	Send(line string)
}

// Deps holds shared dependencies injected into all console commands.
type Deps struct {
	Config     *config.Config
	Event      *data.EventConfig
	Controller *convoy.Controller
	World      *world.State
	Wallet     *persist.WalletRepo  // nil when the database is disabled
	History    *persist.HistoryRepo // nil when the database is disabled
	Log        *zap.Logger
}

// RegisterAll registers every console command into the registry.
func RegisterAll(reg *Registry) {
	reg.Register("help", "help", func(out Replier, _ []string, _ time.Time, _ *Deps) {
		for _, u := range reg.Usage() {
			out.Send(u)
		}
	})
	reg.Register("start", "start", cmdStart)
	reg.Register("stop", "stop", cmdStop)
	reg.Register("status", "status", cmdStatus)
	reg.Register("history", "history [n]", cmdHistory)
	reg.Register("balance", "balance <player>", cmdBalance)

	// debug commands driving the in-memory world
	reg.Register("who", "who [name]", gmWho)
	reg.Register("join", "join <player> <name> [x z]", gmJoin)
	reg.Register("move", "move <player> <x> <z>", gmMove, "tp")
	reg.Register("damage", "damage <convoy|handle> <amount>", gmDamage, "hit")
	reg.Register("kill", "kill <player>", gmKill)
	reg.Register("pickup", "pickup <player> [item]", gmPickup)
	reg.Register("quit", "quit <player>", gmQuit, "disconnect")
	reg.Register("dome", "dome", gmDome)
	reg.Register("world", "world", gmWorld)
}
