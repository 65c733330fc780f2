package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *domain.TurnState) (domain.Update, error) {
	return domain.Update{}, nil
}

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	b.Add("start").Run(noop).Go("pick")
	b.Add("pick").Run(noop).
		Route(func(s *domain.TurnState) string {
			if s.Workflow == domain.WorkflowImage {
				return "image"
			}
			return "text"
		}).
		Branch("image", "image").
		Branch("otherwise", "text")
	b.Add("image").Run(noop).Terminal()
	b.Add("text").Run(noop).Go(End)

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "start", g.Entry())
	assert.Equal(t, 3, g.MaxSteps())
	assert.Len(t, g.Nodes(), 4)

	next, err := g.Next("start", &domain.TurnState{})
	require.NoError(t, err)
	assert.Equal(t, "pick", next)

	next, err = g.Next("pick", &domain.TurnState{Workflow: domain.WorkflowImage})
	require.NoError(t, err)
	assert.Equal(t, "image", next)

	next, err = g.Next("pick", &domain.TurnState{})
	require.NoError(t, err)
	assert.Equal(t, "text", next)

	next, err = g.Next("image", &domain.TurnState{})
	require.NoError(t, err)
	assert.Equal(t, End, next)
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Builder)
	}{
		{"missing stage", func(b *Builder) {
			b.Add("start").Go(End)
		}},
		{"broken link", func(b *Builder) {
			b.Add("start").Run(noop).Go("ghost")
		}},
		{"cycle", func(b *Builder) {
			b.Add("a").Run(noop).Go("b")
			b.Add("b").Run(noop).Go("a")
		}},
		{"ambiguous unconditional", func(b *Builder) {
			b.Add("start").Run(noop).Go("x").Go(End)
			b.Add("x").Run(noop).Go(End)
		}},
		{"route without branches", func(b *Builder) {
			b.Add("start").Run(noop).Route(func(*domain.TurnState) string { return End })
		}},
		{"empty", func(b *Builder) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			tt.setup(b)
			_, err := b.Build()
			assert.Error(t, err)
		})
	}
}

func TestGraph_UndeclaredRouteTarget(t *testing.T) {
	b := New()
	b.Add("start").Run(noop).
		Route(func(*domain.TurnState) string { return "elsewhere" }).
		Branch("done", End)

	g, err := b.Build()
	require.NoError(t, err)

	_, err = g.Next("start", &domain.TurnState{})
	assert.ErrorContains(t, err, "undeclared target")
}

func TestGraph_NodesAreCopies(t *testing.T) {
	b := New()
	b.Add("start").Run(noop).Go(End)
	g, err := b.Build()
	require.NoError(t, err)

	n, ok := g.Node("start")
	require.True(t, ok)
	n.Transitions[0].ToNodeID = "mutated"

	next, err := g.Next("start", &domain.TurnState{})
	require.NoError(t, err)
	assert.Equal(t, End, next)
}
