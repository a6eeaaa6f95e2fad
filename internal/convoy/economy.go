package convoy

import (
	"context"
	"time"

	"github.com/l1jgo/convoy/internal/core/event"
	"go.uber.org/zap"
)

// tickEconomy credits the current holder, clamped to the phase cap.
func (c *Controller) tickEconomy(at time.Time) {
	ev := c.active
	if ev == nil || ev.SpecialItemHolder == 0 {
		return
	}
	holder := ev.SpecialItemHolder
	pd, ok := c.registry.Get(holder)
	if !ok {
		return
	}
	limit := c.currentPhase().MaxEconomy
	if pd.CurrentEconomy < limit {
		pd.CurrentEconomy += c.cfg.Economy.AccrualRate
		if pd.CurrentEconomy > limit {
			pd.CurrentEconomy = limit
		}
	}
	c.refreshPlayer(holder, at)
}

// awardFinalRewards pays every participant with a positive balance. Without a
// wallet the reward is still computed and reported, just not persisted.
func (c *Controller) awardFinalRewards(now time.Time) {
	ev := c.active
	phase := c.currentPhase()
	for _, id := range c.registry.IDs() {
		pd, _ := c.registry.Get(id)
		if pd.CurrentEconomy <= 0 {
			continue
		}
		reward := pd.CurrentEconomy
		if c.rewards != nil {
			reward = c.rewards.CalcFinalReward(pd.CurrentEconomy, ev.CurrentPhase, phase.MaxEconomy)
		}
		if reward <= 0 {
			continue
		}

		persisted := c.deposit(id, reward)
		c.notifier.Notify(id,
			c.printer.Sprintf("Event reward: %d %s!", reward, c.cfg.Economy.CurrencyName),
			c.cfg.UI.MainColor)
		c.emit(event.RewardGranted{RunID: ev.RunID, PlayerID: uint64(id), Amount: reward, Persisted: persisted, At: now})
	}
}

func (c *Controller) deposit(id PlayerID, amount int) bool {
	if !c.cfg.Economy.UseWallet {
		return false
	}
	if c.wallet == nil {
		if !c.warnedWallet {
			c.warnedWallet = true
			c.log.Warn("錢包服務不可用，獎勵不會被保存")
		}
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.walletTO)
	defer cancel()
	if err := c.wallet.Deposit(ctx, id, amount); err != nil {
		c.log.Error("發放活動獎勵失敗",
			zap.Uint64("player", uint64(id)),
			zap.Int("amount", amount),
			zap.Error(err))
		return false
	}
	return true
}
