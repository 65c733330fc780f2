package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/companion/internal/validator"
)

// Builder manages the graph construction.
type Builder struct {
	nodes map[string]*NodeBuilder
	order []string
	entry string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Entry sets the first node of every run. It defaults to the first node added.
func (b *Builder) Entry(id string) *Builder {
	b.entry = id
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build validates the topology and compiles it into an immutable Graph.
func (b *Builder) Build() (*Graph, error) {
	entry := b.entry
	if entry == "" && len(b.order) > 0 {
		entry = b.order[0]
	}

	var errs []error
	topo := make(validator.Topology, len(b.nodes))
	nodes := make(map[string]Node, len(b.nodes))

	for _, id := range b.order {
		n := b.nodes[id].Build()
		if id == End {
			errs = append(errs, fmt.Errorf("node id %q is reserved", End))
			continue
		}
		if n.Stage == nil {
			errs = append(errs, fmt.Errorf("node %q has no stage", id))
		}
		if n.Route == nil && len(n.Transitions) > 1 {
			errs = append(errs, fmt.Errorf("node %q has %d unconditional transitions; use Route to choose between them", id, len(n.Transitions)))
		}
		if n.Route != nil && len(n.Transitions) == 0 {
			errs = append(errs, fmt.Errorf("node %q routes but declares no branches", id))
		}

		targets := make([]string, 0, len(n.Transitions))
		for _, t := range n.Transitions {
			targets = append(targets, t.ToNodeID)
		}
		topo[id] = targets

		n.Transitions = append([]Transition(nil), n.Transitions...)
		nodes[id] = n
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	depth, err := validator.ValidateGraph(topo, entry, End)
	if err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	return &Graph{
		entry:    entry,
		nodes:    nodes,
		order:    append([]string(nil), b.order...),
		maxSteps: depth,
	}, nil
}
