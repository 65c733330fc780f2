package runner

import (
	"context"

	"github.com/aretw0/companion"
)

// Agent is the part of companion.Agent the chat loop drives.
type Agent interface {
	HandleMessage(ctx context.Context, sessionID, text string) (*companion.Reply, error)
}

// IOHandler defines the strategy for talking to the user.
// This allows switching between Text (REPL) and JSON (line protocol) modes.
type IOHandler interface {
	// Input reads the next user message. io.EOF ends the session.
	Input(ctx context.Context) (string, error)

	// Output presents a completed turn.
	Output(ctx context.Context, reply *companion.Reply) error

	// Failure reports a turn that did not complete. The session continues.
	Failure(ctx context.Context, err error) error
}
