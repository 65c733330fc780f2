package dsl

import (
	"context"

	"github.com/aretw0/companion/pkg/domain"
)

// End is the sink every path terminates in.
const End = "__end__"

// Stage runs one node of a turn. It reads the state and returns only the
// fields it changed. It must not mutate state.
type Stage func(ctx context.Context, state *domain.TurnState) (domain.Update, error)

// Selector chooses the next node of a conditional fan-out. It must return one
// of the node's declared Branch targets.
type Selector func(state *domain.TurnState) string

// Compensation reverts the side effects of a completed stage when a later
// stage of the same run fails. applied is the update the stage returned.
type Compensation func(ctx context.Context, applied domain.Update)

// Transition is a declared edge. Condition is a human-readable label and is
// empty for unconditional edges.
type Transition struct {
	ToNodeID  string
	Condition string
}

// Node is a compiled graph node.
type Node struct {
	ID          string
	Stage       Stage
	Route       Selector
	Undo        Compensation
	Transitions []Transition
	// Kind is the domain error kind reported when the turn is cancelled
	// before the stage starts.
	Kind error
}

// Conditional reports whether the node picks its successor at runtime.
func (n Node) Conditional() bool {
	return n.Route != nil
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    Node
	builder *Builder
}

// Run sets the stage executed when the node is entered.
func (n *NodeBuilder) Run(stage Stage) *NodeBuilder {
	n.node.Stage = stage
	return n
}

// Undo registers the compensation run when the turn fails after this node.
func (n *NodeBuilder) Undo(fn Compensation) *NodeBuilder {
	n.node.Undo = fn
	return n
}

// Kind sets the error kind of the node.
func (n *NodeBuilder) Kind(kind error) *NodeBuilder {
	n.node.Kind = kind
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Transitions = append(n.node.Transitions, Transition{
		ToNodeID: target,
	})
	return n
}

// Route makes the node a conditional fan-out decided by sel.
func (n *NodeBuilder) Route(sel Selector) *NodeBuilder {
	n.node.Route = sel
	return n
}

// Branch declares a target the node's Selector may choose.
func (n *NodeBuilder) Branch(condition string, target string) *NodeBuilder {
	n.node.Transitions = append(n.node.Transitions, Transition{
		Condition: condition,
		ToNodeID:  target,
	})
	return n
}

// Terminal marks the node as the last one of every path through it.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Transitions = []Transition{{ToNodeID: End}}
	n.node.Route = nil
	return n
}

// Build returns the configured node.
func (n *NodeBuilder) Build() Node {
	return n.node
}
