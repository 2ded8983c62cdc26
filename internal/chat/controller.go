// Package chat owns one active assessment conversation: the transcript,
// the exchange protocol with the remote interviewer, and the countdown
// that forces completion when the time box runs out.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hrbooteh/assessor/internal/api"
	"github.com/hrbooteh/assessor/internal/domain"
)

// SessionState is the lifecycle phase of one chat session.
type SessionState string

const (
	// StateIdle is the zero state before Start.
	StateIdle SessionState = "idle"
	// StateStarting covers the in-flight start exchange.
	StateStarting SessionState = "starting"
	// StateActive means the conversation is open for messages.
	StateActive SessionState = "active"
	// StateCompleting covers the completion handshake with the tracker.
	StateCompleting SessionState = "completing"
	// StateCompleted is terminal; the session accepts nothing further.
	StateCompleted SessionState = "completed"
)

var (
	// ErrEmptyMessage is returned for empty or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while another exchange is in flight.
	ErrBusy = errors.New("another exchange is in flight")
	// ErrNotActive is returned when the session cannot accept the call in
	// its current state.
	ErrNotActive = errors.New("session is not active")
	// ErrStartFailed wraps the one unrecoverable failure mode: the remote
	// start call did not succeed and the session is aborted.
	ErrStartFailed = errors.New("failed to start assessment session")
)

// fallbackReply is appended in place of an interviewer reply when a send
// exchange fails. The transcript is never truncated; the user's turn stays
// and the conversation remains usable.
const fallbackReply = "There seems to be a temporary connectivity problem. Please try sending your message again."

// Gateway is the slice of the API client the controller needs.
type Gateway interface {
	StartAssessment(ctx context.Context, assessmentType, userContext string) (*api.StartResponse, error)
	SendMessage(ctx context.Context, assessmentID int64, message string) (*api.MessageResponse, error)
}

// ProgressMarker is the single integration point with the progress
// tracker: completing a session is the only path that marks an item done.
type ProgressMarker interface {
	SetStatus(id string, status domain.Status) error
}

// Config tunes the session time box.
type Config struct {
	// Duration is the fixed total conversation time.
	Duration time.Duration
	// Tick is the countdown granularity.
	Tick time.Duration
}

// DefaultConfig returns the standard fifteen-minute box with one-second
// ticks.
func DefaultConfig() Config {
	return Config{
		Duration: 15 * time.Minute,
		Tick:     time.Second,
	}
}

// Controller orchestrates one assessment conversation. Create one per
// opened assessment and discard it on navigation away (Close) or
// completion.
type Controller struct {
	gw       Gateway
	progress ProgressMarker
	logger   *slog.Logger
	cfg      Config

	itemID string

	mu            sync.Mutex
	state         SessionState
	backendID     int64
	transcript    []domain.Turn
	analysisReady bool
	inFlight      bool
	remaining     time.Duration
	closed        bool

	// epoch invalidates in-flight exchanges: a response that resolves
	// after completion or teardown is discarded, not appended.
	epoch int

	countdownCancel context.CancelFunc

	onAnalysisReady func()
	onCompleted     func(itemID string)
}

// NewController creates a controller for the assessment item with the
// given id. The id doubles as the assessment_type sent to the backend.
func NewController(itemID string, gw Gateway, progress ProgressMarker, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultConfig().Duration
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	return &Controller{
		gw:        gw,
		progress:  progress,
		logger:    logger,
		cfg:       cfg,
		itemID:    itemID,
		state:     StateIdle,
		remaining: cfg.Duration,
	}
}

// OnAnalysisReady registers a callback fired exactly once, when the remote
// service first signals that enough material has been gathered. Set before
// Start.
func (c *Controller) OnAnalysisReady(fn func()) {
	c.mu.Lock()
	c.onAnalysisReady = fn
	c.mu.Unlock()
}

// OnCompleted registers a callback fired once when the session completes.
// Set before Start.
func (c *Controller) OnCompleted(fn func(itemID string)) {
	c.mu.Lock()
	c.onCompleted = fn
	c.mu.Unlock()
}

// Start opens the conversation with the remote service. On success the
// interviewer's opening turn is in the transcript and the countdown runs.
// On failure the session is aborted — this is the one unrecoverable
// failure mode; the caller should navigate away.
func (c *Controller) Start(ctx context.Context, userContext string) error {
	c.mu.Lock()
	if c.closed || c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotActive, c.state)
	}
	c.state = StateStarting
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.gw.StartAssessment(ctx, c.itemID, userContext)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch || c.closed {
		// Torn down while the start call was in flight.
		return fmt.Errorf("%w: session closed", ErrNotActive)
	}

	if err != nil {
		c.state = StateIdle
		c.logger.Error("assessment start failed", "item", c.itemID, "error", err)
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	c.backendID = resp.AssessmentID
	c.appendLocked(domain.AuthorInterviewer, resp.AIResponse.Message, false)
	c.state = StateActive
	c.noteAnalysisLocked(resp.AIResponse.AnalysisReady)
	c.startCountdownLocked()

	c.logger.Info("assessment session started",
		"item", c.itemID,
		"assessment_id", c.backendID)
	return nil
}

// Send posts one user message. The user's turn is appended optimistically
// before the network call and never removed; a failed exchange appends a
// fallback interviewer turn instead and the session stays usable. At most
// one exchange may be in flight.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed || c.state != StateActive {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotActive, c.state)
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	epoch := c.epoch
	backendID := c.backendID
	userTurnID := c.appendLocked(domain.AuthorUser, text, true)
	c.mu.Unlock()

	resp, err := c.gw.SendMessage(ctx, backendID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if c.epoch != epoch {
		// The countdown completed the session (or it was torn down) while
		// the exchange was in flight. The reply is stale: drop it.
		c.logger.Debug("discarding stale exchange result", "item", c.itemID)
		return nil
	}

	if err != nil {
		// Degraded, not fatal: keep the user's turn marked pending and
		// answer with the fixed fallback so the transcript shows what
		// happened.
		c.logger.Warn("message exchange failed", "item", c.itemID, "error", err)
		c.appendLocked(domain.AuthorInterviewer, fallbackReply, false)
		return nil
	}

	c.promoteLocked(userTurnID)
	c.appendLocked(domain.AuthorInterviewer, resp.AIResponse.Message, false)
	c.noteAnalysisLocked(resp.AnalysisReady || resp.AIResponse.AnalysisReady)
	return nil
}

// Complete finishes the session: the corresponding progress item is marked
// completed and the state becomes terminal. Idempotent — a second call is
// a no-op. This is the only path that marks progress items completed.
func (c *Controller) Complete() error {
	c.mu.Lock()
	if c.state == StateCompleted || c.state == StateCompleting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateCompleting
	c.epoch++
	c.stopCountdownLocked()
	onCompleted := c.onCompleted
	c.mu.Unlock()

	err := c.progress.SetStatus(c.itemID, domain.StatusCompleted)
	if err != nil {
		c.logger.Warn("failed to mark item completed", "item", c.itemID, "error", err)
	}

	c.mu.Lock()
	c.state = StateCompleted
	c.mu.Unlock()

	c.logger.Info("assessment session completed", "item", c.itemID)
	if onCompleted != nil {
		onCompleted(c.itemID)
	}
	return err
}

// Close tears the session down without completing it: timers stop and any
// late network response is discarded. Progress is untouched. Use when the
// user navigates away mid-session.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.stopCountdownLocked()
	state := c.state
	c.mu.Unlock()

	c.logger.Debug("chat session closed", "item", c.itemID, "state", state)
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Turn, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// IsBusy reports whether an exchange is in flight.
func (c *Controller) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// AnalysisReady reports whether the remote service has signaled that the
// conversation yielded enough material. Sticky: once true, stays true.
func (c *Controller) AnalysisReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysisReady
}

// Remaining returns the time left on the countdown.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// State returns the session's lifecycle phase.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BackendID returns the server-assigned assessment id, 0 before Start
// succeeds.
func (c *Controller) BackendID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backendID
}

// ItemID returns the assessment item this session belongs to.
func (c *Controller) ItemID() string {
	return c.itemID
}

func (c *Controller) appendLocked(author domain.Author, text string, pending bool) string {
	turn := domain.Turn{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: time.Now(),
		Pending:   pending,
	}
	c.transcript = append(c.transcript, turn)
	return turn.ID
}

func (c *Controller) promoteLocked(turnID string) {
	for i := range c.transcript {
		if c.transcript[i].ID == turnID {
			c.transcript[i].Pending = false
			return
		}
	}
}

// noteAnalysisLocked latches the analysis-ready flag and schedules the
// one-shot notification. Called with c.mu held.
func (c *Controller) noteAnalysisLocked(ready bool) {
	if !ready || c.analysisReady {
		return
	}
	c.analysisReady = true
	if fn := c.onAnalysisReady; fn != nil {
		// Fire outside the lock; the callback may call back into the
		// controller.
		go fn()
	}
	c.logger.Info("analysis ready", "item", c.itemID)
}
