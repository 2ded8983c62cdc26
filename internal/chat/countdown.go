package chat

import (
	"context"
	"time"
)

// startCountdownLocked launches the session countdown. Called with c.mu
// held, once, on the idle→active transition.
func (c *Controller) startCountdownLocked() {
	if c.countdownCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.countdownCancel = cancel
	go c.countdown(ctx)
}

// stopCountdownLocked cancels the countdown, if running. Called with c.mu
// held. It does not wait for the goroutine: the countdown itself triggers
// Complete, which stops the countdown.
func (c *Controller) stopCountdownLocked() {
	if c.countdownCancel != nil {
		c.countdownCancel()
		c.countdownCancel = nil
	}
}

// countdown decrements the remaining time once per tick while the session
// is active. Reaching zero forces completion unconditionally, even with an
// exchange in flight; the in-flight reply is then discarded on arrival.
func (c *Controller) countdown(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.state != StateActive {
				c.mu.Unlock()
				continue
			}
			c.remaining -= c.cfg.Tick
			if c.remaining > 0 {
				c.mu.Unlock()
				continue
			}
			c.remaining = 0
			c.mu.Unlock()

			c.logger.Info("time box expired, forcing completion", "item", c.itemID)
			c.Complete()
			return
		case <-ctx.Done():
			return
		}
	}
}
