package ports

import (
	"context"

	"github.com/aretw0/companion/pkg/domain"
)

// ConversationStore persists the conversation tail between turns.
type ConversationStore interface {
	// Save persists the conversation for a given session ID.
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Delete removes the conversation for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
