package domain

import (
	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation history.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh unique ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// UserMessage is shorthand for NewMessage(RoleUser, content).
func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// AssistantMessage is shorthand for NewMessage(RoleAssistant, content).
func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// Tail returns the last n messages of msgs (all of them if n exceeds the length).
// The returned slice is a copy.
func Tail(msgs []Message, n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	if n > len(msgs) {
		n = len(msgs)
	}
	out := make([]Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out
}
