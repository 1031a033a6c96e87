package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is a known role.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn entry in a thread. Messages are append-only.
type Message struct {
	ID       string      `json:"id"`
	ThreadID string      `json:"thread_id"`
	Role     MessageRole `json:"role"`
	Content  string      `json:"message"`
	// Position is the 1-based ordinal of the message inside its thread.
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// InsertMessage appends a message and assigns its position.
	InsertMessage(ctx context.Context, threadID string, role MessageRole, content string) (*Message, error)
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
	CountMessages(ctx context.Context, threadID string) (int, error)
}

// Store is the full storage gateway.
type Store interface {
	ThreadRepository
	MessageRepository
	Ping(ctx context.Context) error
	Close()
}
