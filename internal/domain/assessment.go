package domain

// Status describes where an assessment item sits in the guided sequence.
type Status string

const (
	// StatusLocked means the item cannot be opened yet.
	StatusLocked Status = "locked"
	// StatusCurrent means the item is the one the user should do next.
	StatusCurrent Status = "current"
	// StatusCompleted means the item is finished; terminal.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLocked, StatusCurrent, StatusCompleted:
		return true
	}
	return false
}

// AssessmentItem is one step in the fixed ordered sequence the user
// progresses through. The ID doubles as the assessment_type sent to the
// backend when a chat session starts.
type AssessmentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Status      Status `json:"status"`
}

// DefaultAssessments returns the standard five-step sequence with the first
// item unlocked. The order is fixed; completion of one item unlocks the next.
func DefaultAssessments() []AssessmentItem {
	return []AssessmentItem{
		{
			ID:          "independence",
			Title:       "Independence Assessment",
			Description: "How self-sufficient you are in a working environment",
			Path:        "/assessment/independence",
			Status:      StatusCurrent,
		},
		{
			ID:          "confidence",
			Title:       "Confidence Assessment",
			Description: "Your level of confidence when making decisions",
			Path:        "/assessment/confidence",
			Status:      StatusLocked,
		},
		{
			ID:          "negotiation",
			Title:       "Negotiation Skills Assessment",
			Description: "Your ability to negotiate and communicate effectively",
			Path:        "/assessment/negotiation",
			Status:      StatusLocked,
		},
		{
			ID:          "leadership",
			Title:       "Leadership Skills Assessment",
			Description: "Your capacity for leading and managing a team",
			Path:        "/assessment/leadership",
			Status:      StatusLocked,
		},
		{
			ID:          "communication",
			Title:       "Communication Skills Assessment",
			Description: "How effectively you communicate and work in a team",
			Path:        "/assessment/communication",
			Status:      StatusLocked,
		},
	}
}
