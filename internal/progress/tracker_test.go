package progress

import (
	"errors"
	"testing"

	"github.com/hrbooteh/assessor/internal/domain"
)

func threeItems() []domain.AssessmentItem {
	return []domain.AssessmentItem{
		{ID: "a", Title: "A", Status: domain.StatusCurrent},
		{ID: "b", Title: "B", Status: domain.StatusLocked},
		{ID: "c", Title: "C", Status: domain.StatusLocked},
	}
}

// checkInvariants fails the test if the sequence breaks the ordering
// rules: at most one current item, and no locked item before a completed
// one.
func checkInvariants(t *testing.T, tr *Tracker) {
	t.Helper()

	items := tr.Items()
	currents := 0
	for _, item := range items {
		if item.Status == domain.StatusCurrent {
			currents++
		}
	}
	if currents > 1 {
		t.Errorf("Expected at most one current item, got %d", currents)
	}

	seenNonCompleted := false
	for _, item := range items {
		if item.Status != domain.StatusCompleted {
			seenNonCompleted = true
		} else if seenNonCompleted {
			t.Errorf("Completed item %q appears after a non-completed one", item.ID)
		}
	}
}

func TestCompletingPromotesNext(t *testing.T) {
	tr := NewTracker(threeItems())

	if err := tr.SetStatus("a", domain.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	items := tr.Items()
	want := []domain.Status{domain.StatusCompleted, domain.StatusCurrent, domain.StatusLocked}
	for i, item := range items {
		if item.Status != want[i] {
			t.Errorf("Item %q: expected %s, got %s", item.ID, want[i], item.Status)
		}
	}
	checkInvariants(t, tr)
}

func TestCompletingLastLeavesNoCurrent(t *testing.T) {
	tr := NewTracker(threeItems())

	for _, id := range []string{"a", "b", "c"} {
		if err := tr.SetStatus(id, domain.StatusCompleted); err != nil {
			t.Fatalf("SetStatus(%q) failed: %v", id, err)
		}
	}

	if idx := tr.CurrentIndex(); idx != -1 {
		t.Errorf("Expected current index -1, got %d", idx)
	}
	if !tr.AllCompleted() {
		t.Error("Expected all items completed")
	}
	checkInvariants(t, tr)
}

func TestSetStatusUnknownID(t *testing.T) {
	tr := NewTracker(threeItems())

	err := tr.SetStatus("nope", domain.StatusCompleted)
	if !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem, got %v", err)
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	tr := NewTracker(threeItems())

	if err := tr.SetStatus("a", domain.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	for _, status := range []domain.Status{domain.StatusLocked, domain.StatusCurrent} {
		if err := tr.SetStatus("a", status); !errors.Is(err, ErrCompletedIsTerminal) {
			t.Errorf("Downgrade to %s: expected ErrCompletedIsTerminal, got %v", status, err)
		}
	}

	// Re-completing is a no-op, not an error.
	if err := tr.SetStatus("a", domain.StatusCompleted); err != nil {
		t.Errorf("Re-completing returned error: %v", err)
	}
}

func TestOutOfOrderCompletionRejected(t *testing.T) {
	tr := NewTracker(threeItems())

	// c is locked; completing it would put a completed item after a locked
	// one.
	if err := tr.SetStatus("c", domain.StatusCompleted); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Expected ErrOutOfOrder, got %v", err)
	}
	checkInvariants(t, tr)
}

func TestSecondCurrentRejected(t *testing.T) {
	tr := NewTracker(threeItems())

	if err := tr.SetStatus("b", domain.StatusCurrent); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("Expected ErrOutOfOrder, got %v", err)
	}
	checkInvariants(t, tr)
}

func TestInvariantsUnderArbitrarySequences(t *testing.T) {
	tr := NewTracker(threeItems())

	calls := []struct {
		id     string
		status domain.Status
	}{
		{"b", domain.StatusCompleted},
		{"a", domain.StatusLocked},
		{"c", domain.StatusCurrent},
		{"a", domain.StatusCompleted},
		{"a", domain.StatusCurrent},
		{"c", domain.StatusCompleted},
		{"b", domain.StatusCompleted},
		{"nope", domain.StatusCurrent},
		{"b", domain.StatusCompleted},
		{"c", domain.StatusCompleted},
	}
	for _, call := range calls {
		// Errors are expected for the invalid transitions; the invariants
		// must hold regardless.
		_ = tr.SetStatus(call.id, call.status)
		checkInvariants(t, tr)
	}

	if !tr.AllCompleted() {
		t.Errorf("Expected the valid subsequence to complete everything, items: %+v", tr.Items())
	}
}

func TestNextAfterCurrent(t *testing.T) {
	tr := NewTracker(threeItems())

	next := tr.NextAfterCurrent()
	if next == nil || next.ID != "b" {
		t.Fatalf("Expected next item b, got %+v", next)
	}

	tr.SetStatus("a", domain.StatusCompleted)
	tr.SetStatus("b", domain.StatusCompleted)

	// c is current and last.
	if next := tr.NextAfterCurrent(); next != nil {
		t.Errorf("Expected no next after last current, got %+v", next)
	}

	tr.SetStatus("c", domain.StatusCompleted)
	if next := tr.NextAfterCurrent(); next != nil {
		t.Errorf("Expected no next with no current, got %+v", next)
	}
}

func TestDefaultSequence(t *testing.T) {
	tr := NewDefaultTracker()

	items := tr.Items()
	if len(items) != 5 {
		t.Fatalf("Expected 5 default assessments, got %d", len(items))
	}
	if items[0].Status != domain.StatusCurrent {
		t.Errorf("Expected first item current, got %s", items[0].Status)
	}
	for _, item := range items[1:] {
		if item.Status != domain.StatusLocked {
			t.Errorf("Item %q: expected locked, got %s", item.ID, item.Status)
		}
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	tr := NewTracker(threeItems())

	items := tr.Items()
	items[0].Status = domain.StatusLocked

	if got, _ := tr.Item("a"); got.Status != domain.StatusCurrent {
		t.Errorf("Mutating the returned slice leaked into tracker state: %s", got.Status)
	}
}
