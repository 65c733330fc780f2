package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

// Dependencies are the collaborators a pipeline calls. All are required.
type Dependencies struct {
	Completer ports.Completer
	Memory    ports.MemoryStore
	Images    ports.ImageGenerator
	Speech    ports.SpeechSynthesizer
}

func (d Dependencies) validate() error {
	var errs []error
	if d.Completer == nil {
		errs = append(errs, errors.New("completer is required"))
	}
	if d.Memory == nil {
		errs = append(errs, errors.New("memory store is required"))
	}
	if d.Images == nil {
		errs = append(errs, errors.New("image generator is required"))
	}
	if d.Speech == nil {
		errs = append(errs, errors.New("speech synthesizer is required"))
	}
	return errors.Join(errs...)
}

// Pipeline holds the stages of a turn. It keeps no per-turn state and is safe
// for concurrent use.
type Pipeline struct {
	deps      Dependencies
	settings  Settings
	artifacts *ArtifactStore
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers the hooks notified of tolerated failures.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// WithArtifactStore overrides where generated media is written.
func WithArtifactStore(store *ArtifactStore) Option {
	return func(p *Pipeline) {
		p.artifacts = store
	}
}

// NewPipeline validates deps and settings and returns a ready pipeline.
func NewPipeline(deps Dependencies, settings Settings, opts ...Option) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	p := &Pipeline{
		deps:     deps,
		settings: settings,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.artifacts == nil {
		p.artifacts = NewArtifactStore(settings.ImageDir, settings.AudioDir)
	}
	return p, nil
}

// Settings returns the effective settings.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// degrade records a tolerated collaborator failure. The operation label is the
// error's kind, so err must carry one.
func (p *Pipeline) degrade(ctx context.Context, sessionID string, err error) {
	op := domain.KindOf(err)
	p.logger.Warn("Continuing without "+op, "session_id", sessionID, "op", op, "err", err)
	if p.hooks.OnDegraded == nil {
		return
	}
	p.hooks.OnDegraded(ctx, &domain.DegradationEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventDegradation,
			SessionID: sessionID,
		},
		Operation: op,
		Err:       err,
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
