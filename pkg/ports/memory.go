package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of a planning conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Memory stores per-session conversation history. History returns the
// newest-last slice, capped at limit when limit > 0; an unknown session
// yields an empty history, not an error.
type Memory interface {
	Append(ctx context.Context, session string, msg Message) error
	History(ctx context.Context, session string, limit int) ([]Message, error)
	Clear(ctx context.Context, session string) error
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
