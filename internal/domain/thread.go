package domain

import (
	"context"
	"time"
)

// DefaultThreadName is stored for threads created before their first user message arrives.
const DefaultThreadName = "General Chat"

// Thread represents a conversation owned by a single user
type Thread struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	// Named reports that Name is no longer the default. It does not gate naming.
	Named        bool      `json:"topic_named"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ThreadRepository defines the interface for thread storage
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *Thread) error
	GetThread(ctx context.Context, id string) (*Thread, error)
	// RenameThread sets the name and marks the thread as named.
	RenameThread(ctx context.Context, id string, name string) error
	ListThreads(ctx context.Context, userID string) ([]Thread, error)
}
