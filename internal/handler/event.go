package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/l1jgo/convoy/internal/convoy"
	"go.uber.org/zap"
)

func cmdStart(out Replier, _ []string, now time.Time, deps *Deps) {
	err := deps.Controller.Start(now)
	switch {
	case err == nil:
		out.Send("Convoy event started successfully!")
	case errors.Is(err, convoy.ErrEventActive):
		out.Send("Event is already active!")
	case errors.Is(err, convoy.ErrNotEnoughPlayers):
		out.Send(fmt.Sprintf("Not enough players to start the event (need %d).", deps.Event.Event.MinPlayers))
	default:
		deps.Log.Warn("手動開始活動失敗", zap.Error(err))
		out.Send("Failed to start convoy event.")
	}
}

func cmdStop(out Replier, _ []string, now time.Time, deps *Deps) {
	if err := deps.Controller.Stop(now); err != nil {
		out.Send("No active event to stop.")
		return
	}
	out.Send("Convoy event stopped.")
}

func cmdStatus(out Replier, _ []string, now time.Time, deps *Deps) {
	out.Send(deps.Controller.Status(now).String())
}

// cmdHistory lists recent runs from the history store.
func cmdHistory(out Replier, args []string, _ time.Time, deps *Deps) {
	if deps.History == nil {
		out.Send("history unavailable: database disabled")
		return
	}
	limit := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			out.Send("usage: history [n]")
			return
		}
		limit = min(n, 50)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Database.WriteTimeout)
	defer cancel()
	runs, err := deps.History.RecentRuns(ctx, limit)
	if err != nil {
		deps.Log.Error("查詢活動紀錄失敗", zap.Error(err))
		out.Send("history query failed")
		return
	}
	if len(runs) == 0 {
		out.Send("no runs recorded")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s started=%s participants=%d", r.RunID, r.StartedAt.Format(time.DateTime), r.Participants)
		if r.EndReason != nil && r.FinalPhase != nil {
			line += fmt.Sprintf(" ended=%s phase=%d", *r.EndReason, *r.FinalPhase+1)
		} else {
			line += " running"
		}
		out.Send(line)
	}
}

func cmdBalance(out Replier, args []string, _ time.Time, deps *Deps) {
	if len(args) != 1 {
		out.Send("usage: balance <player>")
		return
	}
	id, ok := parsePlayer(out, args[0])
	if !ok {
		return
	}
	if deps.Wallet == nil {
		out.Send("wallet unavailable: database disabled")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deps.Config.Database.WriteTimeout)
	defer cancel()
	bal, err := deps.Wallet.Balance(ctx, id)
	if err != nil {
		deps.Log.Error("查詢餘額失敗", zap.Uint64("player", uint64(id)), zap.Error(err))
		out.Send("balance query failed")
		return
	}
	out.Send(fmt.Sprintf("player %d balance: %d %s", id, bal, deps.Event.Economy.CurrencyName))
}
