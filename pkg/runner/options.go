package runner

import (
	"log/slog"

	"github.com/aretw0/companion/internal/logging"
)

// Option configures a Runner.
type Option func(*Runner)

// WithInputHandler sets the IO strategy. The default is a TextHandler on
// stdin/stdout.
func WithInputHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithSessionID sets the conversation the loop talks in.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithSignals toggles OS signal handling. Tests disable it.
func WithSignals(enabled bool) Option {
	return func(r *Runner) {
		r.signals = enabled
	}
}

func defaults(r *Runner) {
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.SessionID == "" {
		r.SessionID = DefaultSessionID
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
}
