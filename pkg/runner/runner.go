package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultSessionID is the conversation used when none is given.
const DefaultSessionID = "local"

// Runner drives a chat session: it reads user messages through an IOHandler,
// hands each to the agent as one turn, and presents the reply.
// A failed turn is reported and the loop continues with the next message.
type Runner struct {
	Agent     Agent
	Handler   IOHandler
	SessionID string
	Logger    *slog.Logger

	signals bool
}

// NewRunner creates a Runner for agent with signal handling enabled.
func NewRunner(agent Agent, opts ...Option) *Runner {
	r := &Runner{Agent: agent, signals: true}
	for _, opt := range opts {
		opt(r)
	}
	defaults(r)
	return r
}

// Run loops until the input ends, the user types quit or exit, an interrupt
// arrives while waiting for input, or ctx is cancelled.
// An interrupt during a turn cancels only that turn.
func (r *Runner) Run(ctx context.Context) error {
	if closer, ok := r.Handler.(io.Closer); ok {
		defer closer.Close()
	}

	var signals *SignalManager
	current := func() context.Context { return ctx }
	if r.signals {
		signals = NewSignalManager(ctx)
		defer signals.Stop()
		current = signals.Context
	}

	logger := r.Logger.With("session_id", r.SessionID)

	for {
		text, err := r.Handler.Input(current())
		if err != nil {
			if signals != nil {
				signals.CheckRace()
			}
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case current().Err() != nil:
				logger.Debug("chat interrupted while waiting for input")
				return nil
			case errors.Is(err, io.EOF):
				return nil
			default:
				return fmt.Errorf("input error: %w", err)
			}
		}

		if isQuit(text) {
			return nil
		}

		reply, err := r.Agent.HandleMessage(current(), r.SessionID, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if signals != nil && signals.Interrupted() {
				signals.Reset()
			}
			logger.Warn("turn failed", "err", err)
			if ferr := r.Handler.Failure(ctx, err); ferr != nil {
				return fmt.Errorf("output error: %w", ferr)
			}
			continue
		}

		logger.Debug("turn completed", "workflow", reply.Workflow, "path", reply.Path)
		if err := r.Handler.Output(ctx, reply); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}

func isQuit(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "quit", "exit":
		return true
	}
	return false
}
