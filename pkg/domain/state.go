package domain

// TurnState is the record threaded through the stages of a single turn.
// It is owned by exactly one in-flight turn and is never shared between
// sessions or concurrent turns.
type TurnState struct {
	SessionID string `json:"session_id"`

	// Messages is the conversation history in insertion order. IDs are unique.
	Messages []Message `json:"messages"`

	// Workflow is set once per turn by the router.
	Workflow Workflow `json:"workflow,omitempty"`

	// MemoryContext is the prompt-ready block of long-term facts for this turn.
	MemoryContext string `json:"memory_context,omitempty"`

	// Summary digests history that has been pruned from Messages.
	Summary string `json:"summary,omitempty"`

	// Artifact is set by the image and audio branches only.
	Artifact *Artifact `json:"artifact,omitempty"`
}

// NewTurnState seeds a turn from the persisted conversation tail.
func NewTurnState(conv *Conversation) *TurnState {
	s := &TurnState{Messages: []Message{}}
	if conv == nil {
		return s
	}
	s.SessionID = conv.SessionID
	s.Summary = conv.Summary
	s.Messages = append(s.Messages, conv.Messages...)
	return s
}

// Clone returns a deep copy of the state.
func (s *TurnState) Clone() *TurnState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Artifact = s.Artifact.clone()
	return &out
}

// Last returns the most recent message, if any.
func (s *TurnState) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastAssistant returns the most recent assistant message, if any.
func (s *TurnState) LastAssistant() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
