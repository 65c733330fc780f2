package companion

import (
	"context"
	"errors"

	"github.com/aretw0/companion/internal/workflow"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
	"github.com/aretw0/companion/pkg/ports"
)

var errDetached = errors.New("collaborator not wired")

// detached stands in for every collaborator when only the graph shape is
// needed. Every call fails.
type detached struct{}

func (detached) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return "", errDetached
}

func (detached) Write(context.Context, string, domain.Message) error { return errDetached }

func (detached) Query(context.Context, string, string, int) ([]string, error) {
	return nil, errDetached
}

func (detached) Generate(context.Context, string) (ports.Image, error) {
	return ports.Image{}, errDetached
}

func (detached) Synthesize(context.Context, string) ([]byte, error) { return nil, errDetached }

// Topology compiles the turn graph for s without any providers, for
// inspection and visualization.
func Topology(s Settings) (*dsl.Graph, error) {
	p, err := workflow.NewPipeline(Dependencies{
		Completer: detached{},
		Memory:    detached{},
		Images:    detached{},
		Speech:    detached{},
	}, s)
	if err != nil {
		return nil, err
	}
	return p.Graph()
}
