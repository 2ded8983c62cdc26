package domain

import (
	"time"
)

// Author identifies who produced a transcript turn.
type Author string

const (
	// AuthorUser marks a turn typed by the person being assessed.
	AuthorUser Author = "user"
	// AuthorInterviewer marks a turn produced by the remote interviewer.
	AuthorInterviewer Author = "ai"
)

// Turn is one entry in a chat session transcript.
//
// Turns authored by the user are appended optimistically before the server
// acknowledges them; such turns carry Pending=true until the exchange
// settles. A pending turn is never removed from the transcript, only
// promoted.
type Turn struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
}
