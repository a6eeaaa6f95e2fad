package convoy

import (
	"fmt"
	"time"
)

// refreshPlayer replaces a participant's panel. Calling it twice leaves the
// same panel as calling it once.
func (c *Controller) refreshPlayer(id PlayerID, now time.Time) {
	if c.active == nil || !c.registry.Has(id) {
		return
	}
	c.panels.HideEventPanel(id)
	c.panels.ShowEventPanel(id, c.panelFor(id, now))
}

func (c *Controller) refreshAll(now time.Time) {
	for _, id := range c.registry.IDs() {
		c.refreshPlayer(id, now)
	}
}

func (c *Controller) panelFor(id PlayerID, now time.Time) Panel {
	ev := c.active
	pd, _ := c.registry.Get(id)
	phase := c.currentPhase()
	remaining := phase.Duration() - now.Sub(ev.PhaseStartTime)

	holder := "None"
	if ev.SpecialItemHolder != 0 {
		holder = c.playerName(ev.SpecialItemHolder)
	}
	return Panel{
		Economy:       pd.CurrentEconomy,
		EconomyCap:    phase.MaxEconomy,
		Currency:      c.cfg.Economy.CurrencyName,
		PhaseLabel:    fmt.Sprintf("Phase %d", ev.CurrentPhase+1),
		TimeRemaining: FormatRemaining(remaining),
		HolderName:    holder,
		MainColor:     c.cfg.UI.MainColor,
		AccentColor:   c.cfg.UI.SecondaryColor,
		TextColor:     c.cfg.UI.TextColor,
	}
}

// FormatRemaining renders a countdown as MM:SS, clamping negatives to zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", (secs/60)%60, secs%60)
}
