package workflow

import (
	"fmt"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/dsl"
)

// Graph compiles the turn topology over the pipeline's stages. The result is
// immutable and may be shared by any number of concurrent turns.
func (p *Pipeline) Graph() (*dsl.Graph, error) {
	overflow := fmt.Sprintf("len(messages) > %d", p.settings.SummaryTrigger)

	b := dsl.New().Entry(NodeMemoryExtract)

	b.Add(NodeMemoryExtract).Run(p.ExtractMemory).Kind(domain.ErrMemoryWrite).Go(NodeRouter)
	b.Add(NodeRouter).Run(p.Route).Kind(domain.ErrClassification).Go(NodeMemoryInject)
	b.Add(NodeMemoryInject).Run(p.InjectMemory).Kind(domain.ErrMemoryRead).
		Route(selectResponse).
		Branch("workflow == image", NodeImage).
		Branch("workflow == audio", NodeAudio).
		Branch("otherwise", NodeConversation)

	b.Add(NodeConversation).Run(p.Converse).Kind(domain.ErrGeneration).
		Route(p.selectContextWindow).
		Branch(overflow, NodeSummarize).
		Branch("otherwise", dsl.End)
	b.Add(NodeImage).Run(p.Illustrate).Kind(domain.ErrImageGeneration).Undo(p.undoArtifact).
		Route(p.selectContextWindow).
		Branch(overflow, NodeSummarize).
		Branch("otherwise", dsl.End)
	b.Add(NodeAudio).Run(p.Speak).Kind(domain.ErrSpeechSynthesis).Undo(p.undoArtifact).
		Route(p.selectContextWindow).
		Branch(overflow, NodeSummarize).
		Branch("otherwise", dsl.End)

	b.Add(NodeSummarize).Run(p.Summarize).Kind(domain.ErrGeneration).Terminal()

	return b.Build()
}

func selectResponse(state *domain.TurnState) string {
	switch state.Workflow {
	case domain.WorkflowImage:
		return NodeImage
	case domain.WorkflowAudio:
		return NodeAudio
	default:
		return NodeConversation
	}
}

func (p *Pipeline) selectContextWindow(state *domain.TurnState) string {
	if len(state.Messages) > p.settings.SummaryTrigger {
		return NodeSummarize
	}
	return dsl.End
}
