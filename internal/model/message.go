package model

import "time"

// Message represents a guestbook entry with its vote tallies
type Message struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
}

// WebSocket event types
const (
	EventMessageCreated = "message_created"
	EventMessageVoted   = "message_voted"
	EventMessageDeleted = "message_deleted"
)

// Event is pushed to WebSocket clients whenever the board changes.
// Message is nil for delete events.
type Event struct {
	Type    string   `json:"type"`
	ID      int64    `json:"id"`
	Message *Message `json:"message,omitempty"`
}
