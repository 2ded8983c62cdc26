// Package progress owns the ordered assessment sequence and its
// unlock/completion state machine. It is purely local: no network, no
// storage, no knowledge of chat sessions.
package progress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hrbooteh/assessor/internal/domain"
)

var (
	// ErrUnknownItem is returned when SetStatus names an id that is not in
	// the sequence.
	ErrUnknownItem = errors.New("unknown assessment item")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrCompletedIsTerminal is returned when a completed item would be
	// downgraded.
	ErrCompletedIsTerminal = errors.New("completed items cannot change status")
	// ErrOutOfOrder is returned when a transition would break the ordered
	// unlock sequence.
	ErrOutOfOrder = errors.New("transition breaks assessment order")
)

// Tracker holds the ordered assessment items and enforces the sequence
// invariants: at most one item is current, completion is terminal, and
// completing an item promotes the next locked item to current.
type Tracker struct {
	mu    sync.Mutex
	items []domain.AssessmentItem
}

// NewTracker creates a tracker over the given ordered items. The slice is
// copied; callers keep no aliasing handle into tracker state.
func NewTracker(items []domain.AssessmentItem) *Tracker {
	owned := make([]domain.AssessmentItem, len(items))
	copy(owned, items)
	return &Tracker{items: owned}
}

// NewDefaultTracker creates a tracker over the standard five-assessment
// sequence with the first item unlocked.
func NewDefaultTracker() *Tracker {
	return NewTracker(domain.DefaultAssessments())
}

// SetStatus sets the named item's status. Completing an item atomically
// promotes the immediately following item from locked to current, so the
// sequence never stalls between steps.
//
// Unknown ids are an error, not a silent no-op. Transitions that would
// break the sequence invariants (a second current item, completion out of
// order, downgrading a completed item) are rejected, which keeps the
// invariants intact under arbitrary call sequences. Setting the status an
// item already has is a no-op.
func (t *Tracker) SetStatus(id string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}

	from := t.items[idx].Status
	if from == status {
		return nil
	}

	switch {
	case from == domain.StatusCompleted:
		return fmt.Errorf("%w: %q", ErrCompletedIsTerminal, id)

	case from == domain.StatusCurrent && status == domain.StatusCompleted:
		t.items[idx].Status = domain.StatusCompleted
		if idx+1 < len(t.items) && t.items[idx+1].Status == domain.StatusLocked {
			t.items[idx+1].Status = domain.StatusCurrent
		}
		return nil

	case from == domain.StatusLocked && status == domain.StatusCurrent:
		if t.currentIndexLocked() >= 0 {
			return fmt.Errorf("%w: another item is already current", ErrOutOfOrder)
		}
		if idx > 0 && t.items[idx-1].Status != domain.StatusCompleted {
			return fmt.Errorf("%w: %q unlocks only after %q completes", ErrOutOfOrder, id, t.items[idx-1].ID)
		}
		t.items[idx].Status = domain.StatusCurrent
		return nil

	default:
		return fmt.Errorf("%w: %s -> %s on %q", ErrOutOfOrder, from, status, id)
	}
}

// CurrentIndex returns the index of the item with status current, or -1
// when no item is current (empty list or everything completed).
func (t *Tracker) CurrentIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentIndexLocked()
}

// CurrentItem returns a copy of the current item, or nil when none is.
func (t *Tracker) CurrentItem() *domain.AssessmentItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.currentIndexLocked()
	if idx < 0 {
		return nil
	}
	item := t.items[idx]
	return &item
}

// NextAfterCurrent returns a copy of the item immediately following the
// current one, or nil when the current item is last or none is current.
func (t *Tracker) NextAfterCurrent() *domain.AssessmentItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.currentIndexLocked()
	if idx < 0 || idx+1 >= len(t.items) {
		return nil
	}
	item := t.items[idx+1]
	return &item
}

// Item returns a copy of the named item.
func (t *Tracker) Item(id string) (domain.AssessmentItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(id)
	if idx < 0 {
		return domain.AssessmentItem{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return t.items[idx], nil
}

// Items returns a copy of the full ordered sequence.
func (t *Tracker) Items() []domain.AssessmentItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.AssessmentItem, len(t.items))
	copy(out, t.items)
	return out
}

// AllCompleted reports whether every item in the sequence is completed.
func (t *Tracker) AllCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, item := range t.items {
		if item.Status != domain.StatusCompleted {
			return false
		}
	}
	return len(t.items) > 0
}

func (t *Tracker) indexOf(id string) int {
	for i := range t.items {
		if t.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tracker) currentIndexLocked() int {
	for i := range t.items {
		if t.items[i].Status == domain.StatusCurrent {
			return i
		}
	}
	return -1
}
