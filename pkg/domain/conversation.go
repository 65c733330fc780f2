package domain

import "time"

// Conversation is the durable tail of a session: the verbatim recent history
// plus the summary of everything that has been pruned.
type Conversation struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Summary   string    `json:"summary,omitempty"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds the encrypted conversation when the store sits behind
	// an encryption layer. Messages and Summary are empty in that case.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewConversation creates an empty conversation for sessionID.
func NewConversation(sessionID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		SessionID: sessionID,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	if c.Sealed != nil {
		out.Sealed = append([]byte(nil), c.Sealed...)
	}
	return &out
}

// Advance returns the conversation that results from a completed turn.
// Per-turn fields of the state (workflow, memory context, artifact) are not
// persisted.
func (c *Conversation) Advance(final *TurnState, at time.Time) *Conversation {
	next := c.Clone()
	next.Messages = make([]Message, len(final.Messages))
	copy(next.Messages, final.Messages)
	next.Summary = final.Summary
	next.Turns++
	next.UpdatedAt = at.UTC()
	return next
}
