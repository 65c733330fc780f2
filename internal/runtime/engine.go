package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
)

// ErrStepLimit is returned when a run visits more nodes than the graph allows.
var ErrStepLimit = errors.New("step limit exceeded")

// Engine executes a compiled graph over a TurnState.
// It is stateless between runs and safe for concurrent use.
type Engine struct {
	graph    *dsl.Graph
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxSteps int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps overrides the step guard (defaults to the graph's longest path).
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// NewEngine creates a new engine for graph.
func NewEngine(graph *dsl.Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:    graph,
		logger:   logging.NewNop(),
		maxSteps: graph.MaxSteps(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the topology the engine runs.
func (e *Engine) Graph() *dsl.Graph {
	return e.graph
}

// Result is the outcome of a successful run.
type Result struct {
	State *domain.TurnState
	// Path lists the executed nodes in order.
	Path []string
}

// Run executes the graph from its entry node until the sink. Each stage sees
// the state produced by merging every earlier stage's update.
//
// On failure Run returns a *domain.StageError and no state: the caller's input
// is never modified, so nothing of a failed run can leak into persistence.
// Compensations of nodes that already completed run in reverse order.
func (e *Engine) Run(ctx context.Context, initial *domain.TurnState) (*Result, error) {
	state := initial.Clone()
	logger := e.logger.With("session_id", state.SessionID)

	path := make([]string, 0, e.maxSteps)
	var done []applied
	fail := func(nodeID string, err error) (*Result, error) {
		e.rollback(ctx, logger, done)
		return nil, &domain.StageError{Stage: nodeID, Err: err}
	}
	nodeID := e.graph.Entry()

	for nodeID != dsl.End {
		if len(path) >= e.maxSteps {
			return fail(nodeID, fmt.Errorf("%w: %d", ErrStepLimit, e.maxSteps))
		}
		node, ok := e.graph.Node(nodeID)
		if !ok {
			return fail(nodeID, fmt.Errorf("unknown node %q", nodeID))
		}
		if err := ctx.Err(); err != nil {
			if node.Kind != nil {
				err = domain.Wrap(node.Kind, "turn aborted", err)
			}
			return fail(nodeID, err)
		}
		path = append(path, nodeID)
		step := len(path)

		e.emitNode(ctx, domain.EventNodeEnter, state.SessionID, nodeID, step, 0, nil)
		logger.Debug("Entering node", "node", nodeID, "step", step)

		start := time.Now()
		update, err := node.Stage(ctx, state)
		elapsed := time.Since(start)

		e.emitNode(ctx, domain.EventNodeLeave, state.SessionID, nodeID, step, elapsed, err)
		if err != nil {
			logger.Warn("Node failed", "node", nodeID, "step", step, "duration", elapsed, "err", err)
			return fail(nodeID, err)
		}
		logger.Debug("Node completed", "node", nodeID, "duration", elapsed)

		if node.Undo != nil {
			done = append(done, applied{nodeID: nodeID, undo: node.Undo, update: update})
		}
		state = domain.Merge(state, update)

		next, err := e.graph.Next(nodeID, state)
		if err != nil {
			return fail(nodeID, err)
		}
		nodeID = next
	}

	return &Result{State: state, Path: path}, nil
}

type applied struct {
	nodeID string
	undo   dsl.Compensation
	update domain.Update
}

// rollback unwinds completed nodes newest first. It runs detached from ctx
// cancellation so a timed-out turn still cleans up.
func (e *Engine) rollback(ctx context.Context, logger *slog.Logger, done []applied) {
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		logger.Info("Compensating node", "node", done[i].nodeID)
		done[i].undo(ctx, done[i].update)
	}
}

func (e *Engine) emitNode(ctx context.Context, typ domain.EventType, sessionID, nodeID string, step int, d time.Duration, err error) {
	hook := e.hooks.OnNodeEnter
	if typ == domain.EventNodeLeave {
		hook = e.hooks.OnNodeLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			SessionID: sessionID,
		},
		NodeID:   nodeID,
		Step:     step,
		Duration: d,
		Err:      err,
	})
}
