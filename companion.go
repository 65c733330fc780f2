package companion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/internal/runtime"
	"github.com/aretw0/companion/internal/validator"
	"github.com/aretw0/companion/internal/workflow"
	"github.com/aretw0/companion/pkg/adapters/memory"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/aretw0/companion/pkg/session"
)

type (
	// Dependencies are the collaborators every turn calls.
	Dependencies = workflow.Dependencies
	// Settings tunes windows, thresholds and timeouts of a turn.
	Settings = workflow.Settings
)

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return workflow.DefaultSettings()
}

// Reply is what a transport sends back for one user message.
type Reply struct {
	SessionID string           `json:"session_id"`
	Text      string           `json:"text"`
	Workflow  domain.Workflow  `json:"workflow"`
	Artifact  *domain.Artifact `json:"artifact,omitempty"`
	// Path lists the graph nodes the turn executed.
	Path []string `json:"path"`
	// Summarized reports whether older history was folded into the summary.
	Summarized bool `json:"summarized"`
}

// Agent is the high-level entry point: it owns the turn graph and serializes
// turns per session over a conversation store.
type Agent struct {
	pipeline *workflow.Pipeline
	engine   *runtime.Engine
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

type options struct {
	settings    Settings
	store       ports.ConversationStore
	sessionOpts []session.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Agent.
type Option func(*options)

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithStore sets where conversations persist between turns (default: in memory).
func WithStore(store ports.ConversationStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLocker serializes turns across replicas sharing a store.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, session.WithLocker(locker), session.WithLockTTL(ttl))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New wires the pipeline, compiles the turn graph once and returns an Agent.
func New(deps Dependencies, opts ...Option) (*Agent, error) {
	o := &options{
		settings: DefaultSettings(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}

	pipeline, err := workflow.NewPipeline(deps, o.settings,
		workflow.WithLogger(o.logger),
		workflow.WithLifecycleHooks(o.hooks),
	)
	if err != nil {
		return nil, err
	}
	graph, err := pipeline.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to build turn graph: %w", err)
	}

	return &Agent{
		pipeline: pipeline,
		engine: runtime.NewEngine(graph,
			runtime.WithLogger(o.logger),
			runtime.WithLifecycleHooks(o.hooks),
		),
		sessions: session.NewManager(o.store, append([]session.Option{session.WithLogger(o.logger)}, o.sessionOpts...)...),
		hooks:    o.hooks,
		logger:   o.logger,
		now:      time.Now,
	}, nil
}

// HandleMessage runs one turn: the user's text is appended to the session's
// history, the graph runs, and the resulting conversation is persisted.
//
// On any error nothing is persisted and no artifact file is left behind, so
// the stored conversation is exactly what it was before the call.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.Wrap(domain.ErrValidation, "session id is required", nil)
	}
	clean, err := validator.SanitizeInput(text)
	if err != nil {
		return nil, err
	}

	var reply *Reply
	err = a.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		reply, err = a.turn(ctx, sessionID, clean)
		return err
	})
	if err != nil {
		if domain.IsTimeout(err) {
			// Still queued behind another turn, or cancelled while loading.
			err = domain.Wrap(domain.ErrGeneration, "turn aborted", err)
		}
		return nil, err
	}
	return reply, nil
}

func (a *Agent) turn(ctx context.Context, sessionID, text string) (*Reply, error) {
	start := a.now()
	logger := a.logger.With("session_id", sessionID)

	conv, err := a.sessions.LoadOrNew(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := domain.NewTurnState(conv)
	state.SessionID = sessionID
	state.Messages = append(state.Messages, domain.UserMessage(text))

	a.emitTurn(ctx, domain.EventTurnStart, sessionID, "", len(state.Messages), 0, nil)

	res, err := a.engine.Run(ctx, state)
	if err != nil {
		a.emitTurn(ctx, domain.EventTurnEnd, sessionID, "", len(state.Messages), a.now().Sub(start), err)
		return nil, err
	}
	final := res.State

	if err := a.sessions.Store().Save(ctx, sessionID, conv.Advance(final, a.now())); err != nil {
		a.pipeline.DiscardArtifact(sessionID, final.Artifact)
		err = fmt.Errorf("failed to persist conversation: %w", err)
		a.emitTurn(ctx, domain.EventTurnEnd, sessionID, final.Workflow, len(final.Messages), a.now().Sub(start), err)
		return nil, err
	}

	a.emitTurn(ctx, domain.EventTurnEnd, sessionID, final.Workflow, len(final.Messages), a.now().Sub(start), nil)
	logger.Debug("Turn committed", "workflow", final.Workflow.String(), "path", res.Path)

	msg, _ := final.LastAssistant()
	return &Reply{
		SessionID:  sessionID,
		Text:       msg.Content,
		Workflow:   final.Workflow,
		Artifact:   final.Artifact,
		Path:       res.Path,
		Summarized: slices.Contains(res.Path, workflow.NodeSummarize),
	}, nil
}

func (a *Agent) emitTurn(ctx context.Context, typ domain.EventType, sessionID string, wf domain.Workflow, messages int, d time.Duration, err error) {
	hook := a.hooks.OnTurnStart
	if typ == domain.EventTurnEnd {
		hook = a.hooks.OnTurnEnd
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.TurnEvent{
		EventBase: domain.EventBase{
			Timestamp: a.now(),
			Type:      typ,
			SessionID: sessionID,
		},
		Workflow: wf,
		Messages: messages,
		Duration: d,
		Err:      err,
	})
}

// Graph returns the compiled turn topology shared by every session.
func (a *Agent) Graph() *dsl.Graph {
	return a.engine.Graph()
}

// Settings returns the effective settings.
func (a *Agent) Settings() Settings {
	return a.pipeline.Settings()
}

// Conversation loads the stored conversation of a session.
func (a *Agent) Conversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return a.sessions.Load(ctx, sessionID)
}

// Sessions lists the stored session IDs.
func (a *Agent) Sessions(ctx context.Context) ([]string, error) {
	return a.sessions.List(ctx)
}

// Forget deletes a session's conversation. Long-term memories are kept.
func (a *Agent) Forget(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}
