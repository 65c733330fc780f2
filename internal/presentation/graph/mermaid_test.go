package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/companion/internal/presentation/graph"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *domain.TurnState) (domain.Update, error) {
	return domain.Update{}, nil
}

func sampleGraph(t *testing.T) *dsl.Graph {
	t.Helper()
	b := dsl.New().Entry("classify")
	b.Add("classify").Run(noop).
		Route(func(*domain.TurnState) string { return "draw-image" }).
		Branch(`workflow == "image"`, "draw-image").
		Branch("otherwise", "chat.reply")
	b.Add("draw-image").Run(noop).Undo(func(context.Context, domain.Update) {}).Go(dsl.End)
	b.Add("chat.reply").Run(noop).Terminal()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(sampleGraph(t), nil)

	for _, want := range []string{
		"graph TD\n",
		`__start__(("start"))`,
		"__start__ --> classify",
		`classify{{"classify"}}`,
		`draw_image[["draw-image"]]`,
		`chat_reply["chat.reply"]`,
		`classify -- "workflow == 'image'" --> draw_image`,
		`classify -- "otherwise" --> chat_reply`,
		"draw_image --> __end__",
		"chat_reply --> __end__",
		`__end__(("end"))`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(sampleGraph(t), &graph.GraphOverlay{
		VisitedNodes: []string{"classify", "draw-image", "classify"},
		CurrentNode:  "draw-image",
	})

	assert.Contains(t, got, "classDef visited")
	assert.Equal(t, 1, strings.Count(got, "class classify visited;"))
	assert.Contains(t, got, "class draw_image current;")
}
