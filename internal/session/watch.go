package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// startWatch launches the background expiry watch. At most one watch runs
// per manager; a second call while one is active is a no-op.
func (m *Manager) startWatch() {
	m.mu.Lock()
	if m.watchCancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watchCancel = cancel
	done := make(chan struct{})
	m.watchDone = done
	m.mu.Unlock()

	go m.watch(ctx, done)
}

// stopWatch cancels the running watch, if any. It does not wait for the
// goroutine to drain: the watch itself may be the caller (a failed refresh
// inside a tick forces logout), and waiting would deadlock.
func (m *Manager) stopWatch() {
	m.mu.Lock()
	cancel := m.watchCancel
	m.watchCancel = nil
	m.watchDone = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// watch periodically inspects the access token's exp claim and refreshes
// when the remaining lifetime drops under the threshold.
func (m *Manager) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.logger.Debug("token expiry watch started",
		"interval", m.cfg.PollInterval,
		"threshold", m.cfg.RefreshThreshold)

	for {
		select {
		case <-ticker.C:
			m.checkExpiry(ctx)
		case <-ctx.Done():
			m.logger.Debug("token expiry watch stopped")
			return
		}
	}
}

func (m *Manager) checkExpiry(ctx context.Context) {
	access, _, err := m.store.Tokens(ctx)
	if err != nil {
		m.logger.Warn("expiry check: failed to read token store", "error", err)
		return
	}
	if access == "" {
		return
	}

	remaining, err := remainingLifetime(access, time.Now())
	if err != nil {
		// Unknown expiry is not an auth failure; skip this tick.
		m.logger.Debug("expiry check: could not decode token", "error", err)
		return
	}

	if remaining < m.cfg.RefreshThreshold {
		m.logger.Info("access token near expiry, refreshing", "remaining", remaining)
		m.Refresh(ctx)
	}
}

// remainingLifetime decodes the token's exp claim without verifying the
// signature; the client holds no signing key and only needs the timestamp.
func remainingLifetime(token string, now time.Time) (time.Duration, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return 0, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return 0, err
	}
	if exp == nil {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return exp.Time.Sub(now), nil
}
