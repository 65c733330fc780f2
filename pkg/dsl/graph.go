package dsl

import (
	"fmt"

	"github.com/aretw0/companion/pkg/domain"
)

// Graph is a validated, immutable turn topology. It holds no per-turn state and
// may be shared by any number of concurrent executions.
type Graph struct {
	entry    string
	nodes    map[string]Node
	order    []string
	maxSteps int
}

// Entry returns the ID of the first node of every run.
func (g *Graph) Entry() string {
	return g.entry
}

// MaxSteps is the number of nodes on the longest path through the graph.
func (g *Graph) MaxSteps() int {
	return g.maxSteps
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	n.Transitions = append([]Transition(nil), n.Transitions...)
	return n, true
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		n, _ := g.Node(id)
		out = append(out, n)
	}
	return out
}

// Next resolves the successor of node id for the given state. It returns End
// when the run is complete.
func (g *Graph) Next(id string, state *domain.TurnState) (string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return "", fmt.Errorf("unknown node %q", id)
	}

	// Conditional first
	if n.Route != nil {
		target := n.Route(state)
		for _, t := range n.Transitions {
			if t.ToNodeID == target {
				return target, nil
			}
		}
		return "", fmt.Errorf("node %q routed to undeclared target %q", id, target)
	}

	if len(n.Transitions) == 0 {
		return End, nil
	}
	return n.Transitions[0].ToNodeID, nil
}
