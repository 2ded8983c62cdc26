// Package session owns authentication state: the current user snapshot,
// the stored token pair lifecycle, and the background watch that renews
// the access token before it expires.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrbooteh/assessor/internal/api"
	"github.com/hrbooteh/assessor/internal/domain"
	"github.com/hrbooteh/assessor/internal/tokenstore"
)

// State is the lifecycle phase of the session manager.
type State string

const (
	// StateUninitialized is the zero state before Initialize runs.
	StateUninitialized State = "uninitialized"
	// StateLoading covers the startup probe and in-flight login/register.
	StateLoading State = "loading"
	// StateAuthenticated means tokens are stored and the user snapshot is
	// loaded.
	StateAuthenticated State = "authenticated"
	// StateAnonymous means no usable credentials are held.
	StateAnonymous State = "anonymous"
)

// Gateway is the slice of the API client the session manager needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, email, password, fullName string) (*api.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.RefreshResponse, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Config tunes the background expiry watch.
type Config struct {
	// PollInterval is how often the watch inspects the access token.
	PollInterval time.Duration
	// RefreshThreshold triggers a refresh when the remaining token
	// lifetime drops below it.
	RefreshThreshold time.Duration
}

// DefaultConfig returns the standard watch cadence: check every minute,
// renew inside the last five.
func DefaultConfig() Config {
	return Config{
		PollInterval:     time.Minute,
		RefreshThreshold: 5 * time.Minute,
	}
}

// Manager drives login/logout/refresh and the proactive token renewal
// loop. It is the only component that writes to the token store.
type Manager struct {
	store  tokenstore.Store
	gw     Gateway
	logger *slog.Logger
	cfg    Config

	mu    sync.Mutex
	state State
	user  *domain.User

	// refreshing is non-nil while a refresh exchange is in flight; late
	// callers wait on it instead of issuing a duplicate network call.
	refreshing    chan struct{}
	lastRefreshOK bool

	// watchCancel stops the expiry watch goroutine. Nil when no watch runs.
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewManager creates a session manager. It performs no I/O until
// Initialize is called.
func NewManager(store tokenstore.Store, gw Gateway, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = DefaultConfig().RefreshThreshold
	}
	return &Manager{
		store:  store,
		gw:     gw,
		logger: logger,
		cfg:    cfg,
		state:  StateUninitialized,
	}
}

// Initialize settles the session from whatever tokens survived the last
// run. Run once at startup.
//
// No stored access token settles anonymous immediately. Otherwise the
// current-user endpoint is probed; if that fails, one token refresh is
// attempted before giving up and clearing the stored pair.
func (m *Manager) Initialize(ctx context.Context) {
	m.setState(StateLoading)

	access, _, err := m.store.Tokens(ctx)
	if err != nil {
		m.logger.Error("failed to read token store", "error", err)
		m.settleAnonymous(ctx, false)
		return
	}
	if access == "" {
		m.settleAnonymous(ctx, false)
		return
	}

	user, err := m.gw.CurrentUser(ctx)
	if err == nil {
		m.settleAuthenticated(user)
		return
	}
	m.logger.Info("stored access token rejected, attempting refresh", "error", err)

	if !m.Refresh(ctx) {
		m.settleAnonymous(ctx, true)
		return
	}

	user, err = m.gw.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("current user fetch failed after refresh", "error", err)
		m.settleAnonymous(ctx, true)
		return
	}
	m.settleAuthenticated(user)
}

// Login authenticates and stores the returned token pair. On failure the
// stored tokens are left untouched and the returned *AuthError carries the
// user-facing category.
func (m *Manager) Login(ctx context.Context, email, password string) *AuthError {
	m.setState(StateLoading)

	resp, err := m.gw.Login(ctx, email, password)
	if err != nil {
		m.setState(StateAnonymous)
		authErr := classifyLogin(err)
		m.logger.Info("login failed", "kind", authErr.Kind, "error", err)
		return authErr
	}

	if err := m.store.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		m.setState(StateAnonymous)
		m.logger.Error("failed to persist tokens", "error", err)
		return &AuthError{Kind: KindOther, Message: "failed to store credentials", Err: err}
	}

	m.settleAuthenticated(&resp.User)
	m.logger.Info("login succeeded", "user_id", resp.User.ID)
	return nil
}

// Register creates an account and logs it in, symmetric to Login.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) *AuthError {
	m.setState(StateLoading)

	resp, err := m.gw.Register(ctx, email, password, fullName)
	if err != nil {
		m.setState(StateAnonymous)
		authErr := classifyRegister(err)
		m.logger.Info("registration failed", "kind", authErr.Kind, "error", err)
		return authErr
	}

	if err := m.store.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		m.setState(StateAnonymous)
		m.logger.Error("failed to persist tokens", "error", err)
		return &AuthError{Kind: KindOther, Message: "failed to store credentials", Err: err}
	}

	m.settleAuthenticated(&resp.User)
	m.logger.Info("registration succeeded", "user_id", resp.User.ID)
	return nil
}

// Logout clears tokens and the user snapshot unconditionally and stops the
// expiry watch. It never fails; storage errors are logged and swallowed.
func (m *Manager) Logout(ctx context.Context) {
	m.settleAnonymous(ctx, true)
	m.logger.Info("logged out")
}

// Refresh exchanges the stored refresh token for a new access token.
// Returns false without any network call when no refresh token is stored.
// On exchange failure all tokens are cleared and the session is forced
// anonymous. Concurrent calls are deduplicated: late callers wait for the
// in-flight exchange and share its outcome.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	if m.refreshing != nil {
		ch := m.refreshing
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
		m.mu.Lock()
		ok := m.lastRefreshOK
		m.mu.Unlock()
		return ok
	}
	ch := make(chan struct{})
	m.refreshing = ch
	m.mu.Unlock()

	ok := m.doRefresh(ctx)

	m.mu.Lock()
	m.lastRefreshOK = ok
	m.refreshing = nil
	m.mu.Unlock()
	close(ch)
	return ok
}

func (m *Manager) doRefresh(ctx context.Context) bool {
	_, refresh, err := m.store.Tokens(ctx)
	if err != nil {
		m.logger.Error("failed to read token store", "error", err)
		return false
	}
	if refresh == "" {
		return false
	}

	resp, err := m.gw.RefreshToken(ctx, refresh)
	if err != nil {
		m.logger.Warn("token refresh failed, forcing logout", "error", err)
		m.settleAnonymous(ctx, true)
		return false
	}

	// The refresh token is retained: the backend does not rotate it.
	if err := m.store.SetAccessToken(ctx, resp.AccessToken); err != nil {
		m.logger.Error("failed to persist refreshed access token", "error", err)
		m.settleAnonymous(ctx, true)
		return false
	}

	m.logger.Debug("access token refreshed")
	return true
}

// User returns a copy of the current user snapshot, or nil when anonymous.
func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether the session holds both a loaded user
// snapshot and stored credentials.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateAuthenticated && m.user != nil
}

// IsLoading reports whether an initialize/login/register is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateLoading
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops the expiry watch without touching stored tokens. Use at
// process shutdown; use Logout to actually end the session.
func (m *Manager) Close() {
	m.stopWatch()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) settleAuthenticated(user *domain.User) {
	m.mu.Lock()
	m.state = StateAuthenticated
	u := *user
	m.user = &u
	m.mu.Unlock()
	m.startWatch()
}

// settleAnonymous transitions to anonymous. When clearTokens is set the
// stored pair is removed; the startup path keeps an empty store untouched.
func (m *Manager) settleAnonymous(ctx context.Context, clearTokens bool) {
	if clearTokens {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error("failed to clear token store", "error", err)
		}
	}
	m.mu.Lock()
	m.state = StateAnonymous
	m.user = nil
	m.mu.Unlock()
	m.stopWatch()
}
