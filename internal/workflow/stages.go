package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/companion/internal/prompts"
	"github.com/aretw0/companion/internal/structured"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

var routerSchema = &ports.Schema{
	Name: "router_decision",
	Properties: map[string]map[string]any{
		"response_type": {
			"type":        "string",
			"enum":        []string{"conversation", "image", "audio"},
			"description": "The response type to give to the user.",
		},
	},
	Required: []string{"response_type"},
}

// routerDecisionSchema checks the shape of a decision but leaves label
// acceptance to domain.ParseWorkflow, which normalizes case and whitespace.
var routerDecisionSchema = &ports.Schema{
	Name: routerSchema.Name,
	Properties: map[string]map[string]any{
		"response_type": {"type": "string"},
	},
	Required: routerSchema.Required,
}

var scenarioSchema = &ports.Schema{
	Name: "image_scenario",
	Properties: map[string]map[string]any{
		"image_prompt": {
			"type":        "string",
			"description": "A detailed prompt for the image generator.",
		},
	},
	Required: []string{"image_prompt"},
}

// ExtractMemory offers the newest message to long-term memory.
func (p *Pipeline) ExtractMemory(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	last, ok := state.Last()
	if !ok {
		p.logger.Debug("No message to remember", "session_id", state.SessionID)
		return domain.Update{}, nil
	}

	ctx, cancel := withTimeout(ctx, p.settings.Timeouts.Memory)
	defer cancel()

	if err := p.deps.Memory.Write(ctx, state.SessionID, last); err != nil {
		err = domain.Wrap(domain.ErrMemoryWrite, "store memory", err)
		if p.settings.TolerateMemoryWriteErrors {
			p.degrade(ctx, state.SessionID, err)
			return domain.Update{}, nil
		}
		return domain.Update{}, err
	}
	return domain.Update{}, nil
}

// Route classifies the recent messages into a workflow.
func (p *Pipeline) Route(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	raw, err := p.complete(ctx, ports.CompletionRequest{
		System:      prompts.RouterPrompt(),
		Messages:    domain.Tail(state.Messages, p.settings.RouterMessages),
		Schema:      routerSchema,
		Temperature: domain.Ptr(p.settings.RouterTemperature),
	})
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrClassification, "classify turn", err)
	}

	label := raw
	var decision struct {
		ResponseType string `json:"response_type"`
	}
	switch err := structured.Decode(raw, routerDecisionSchema, &decision); {
	case err == nil:
		label = decision.ResponseType
	case errors.Is(err, structured.ErrNoJSON):
		// Providers without structured output answer with the bare label.
	default:
		return domain.Update{}, domain.Wrap(domain.ErrClassification, "decode decision", err)
	}

	wf, err := domain.ParseWorkflow(label)
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrClassification, "parse decision", err)
	}
	p.logger.Debug("Turn routed", "session_id", state.SessionID, "workflow", wf)
	return domain.Update{Workflow: &wf}, nil
}

// InjectMemory loads facts relevant to the recent messages. Read failures
// leave the context empty and the turn continues.
func (p *Pipeline) InjectMemory(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	recent := domain.Tail(state.Messages, p.settings.MemoryContextMessages)
	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		parts = append(parts, m.Content)
	}
	query := strings.TrimSpace(strings.Join(parts, " "))
	if query == "" {
		return domain.Update{MemoryContext: domain.Ptr("")}, nil
	}

	ctx, cancel := withTimeout(ctx, p.settings.Timeouts.Memory)
	defer cancel()

	facts, err := p.deps.Memory.Query(ctx, state.SessionID, query, p.settings.MemoryTopK)
	if err != nil {
		p.degrade(ctx, state.SessionID, domain.Wrap(domain.ErrMemoryRead, "query memory", err))
		return domain.Update{MemoryContext: domain.Ptr("")}, nil
	}
	return domain.Update{MemoryContext: domain.Ptr(prompts.FormatMemories(facts))}, nil
}

// Converse produces a plain text reply.
func (p *Pipeline) Converse(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	reply, err := p.reply(ctx, prompts.ConversationPrompt(state.MemoryContext, state.Summary), state.Messages)
	if err != nil {
		return domain.Update{}, err
	}
	return domain.Update{Append: []domain.Message{domain.AssistantMessage(reply)}}, nil
}

// Illustrate derives an image prompt from the conversation, renders and saves
// the image, then captions it.
func (p *Pipeline) Illustrate(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	raw, err := p.complete(ctx, ports.CompletionRequest{
		System:      prompts.ScenarioPrompt(),
		Messages:    domain.Tail(state.Messages, p.settings.ScenarioMessages),
		Schema:      scenarioSchema,
		Temperature: domain.Ptr(p.settings.ScenarioTemperature),
	})
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrGeneration, "create image scenario", err)
	}
	var scenario struct {
		ImagePrompt string `json:"image_prompt"`
	}
	if err := structured.Decode(raw, scenarioSchema, &scenario); err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrGeneration, "decode image scenario", err)
	}
	imagePrompt := strings.TrimSpace(scenario.ImagePrompt)
	if imagePrompt == "" {
		return domain.Update{}, domain.Wrap(domain.ErrGeneration, "empty image prompt", nil)
	}

	genCtx, cancel := withTimeout(ctx, p.settings.Timeouts.Image)
	img, err := p.deps.Images.Generate(genCtx, imagePrompt)
	cancel()
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrImageGeneration, "generate image", err)
	}
	if len(img.Data) == 0 {
		return domain.Update{}, domain.ErrEmptyImage
	}

	ext := img.Ext
	if ext == "" {
		ext = ".webp"
	}
	path, err := p.artifacts.Save(domain.ArtifactImage, ext, img.Data)
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrImageGeneration, "save image", err)
	}

	reference := domain.UserMessage(prompts.ImageReference(imagePrompt))
	history := append(append([]domain.Message(nil), state.Messages...), reference)

	caption, err := p.reply(ctx, prompts.ImageCaptionPrompt(state.MemoryContext, state.Summary), history)
	if err != nil {
		p.discard(state.SessionID, path)
		return domain.Update{}, err
	}

	p.logger.Info("Image generated", "session_id", state.SessionID, "path", path)
	return domain.Update{
		Append:   []domain.Message{reference, domain.AssistantMessage(caption)},
		Artifact: domain.NewImageArtifact(path),
	}, nil
}

// Speak produces a reply and synthesizes it as a voice note.
func (p *Pipeline) Speak(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	reply, err := p.reply(ctx, prompts.AudioPrompt(state.MemoryContext, state.Summary), state.Messages)
	if err != nil {
		return domain.Update{}, err
	}
	if err := ports.ValidateSpeechText(reply); err != nil {
		return domain.Update{}, err
	}

	synthCtx, cancel := withTimeout(ctx, p.settings.Timeouts.Speech)
	audio, err := p.deps.Speech.Synthesize(synthCtx, reply)
	cancel()
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrSpeechSynthesis, "synthesize reply", err)
	}
	if len(audio) == 0 {
		return domain.Update{}, domain.ErrEmptyAudio
	}

	path, err := p.artifacts.Save(domain.ArtifactAudio, ".mp3", audio)
	if err != nil {
		return domain.Update{}, domain.Wrap(domain.ErrSpeechSynthesis, "save audio", err)
	}

	p.logger.Info("Audio generated", "session_id", state.SessionID, "path", path, "bytes", len(audio))
	return domain.Update{
		Append:   []domain.Message{domain.AssistantMessage(reply)},
		Artifact: domain.NewAudioArtifact(audio, path),
	}, nil
}

// Summarize folds the history into the running summary and prunes all but
// the most recent messages in the same update.
func (p *Pipeline) Summarize(ctx context.Context, state *domain.TurnState) (domain.Update, error) {
	history := append(append([]domain.Message(nil), state.Messages...),
		domain.UserMessage(prompts.SummaryPrompt(state.Summary)))

	summary, err := p.reply(ctx, "", history)
	if err != nil {
		return domain.Update{}, err
	}

	prune := domain.PruneAllBut(state.Messages, p.settings.KeepAfterSummary)
	p.logger.Info("Conversation summarized", "session_id", state.SessionID, "pruned", len(prune))
	return domain.Update{Summary: &summary, Prune: prune}, nil
}

// undoArtifact removes the media file of a branch whose turn later failed.
func (p *Pipeline) undoArtifact(ctx context.Context, applied domain.Update) {
	if applied.Artifact == nil {
		return
	}
	p.discard("", applied.Artifact.Path)
}

// DiscardArtifact removes the file of an artifact produced by a turn that
// could not be committed.
func (p *Pipeline) DiscardArtifact(sessionID string, a *domain.Artifact) {
	if a == nil || a.Path == "" {
		return
	}
	p.discard(sessionID, a.Path)
}

func (p *Pipeline) discard(sessionID, path string) {
	if err := p.artifacts.Remove(path); err != nil {
		p.logger.Warn("Failed to remove artifact", "session_id", sessionID, "path", path, "err", err)
	}
}

// reply runs a free-text completion and cleans it for delivery. An empty
// result is a generation failure.
func (p *Pipeline) reply(ctx context.Context, system string, history []domain.Message) (string, error) {
	raw, err := p.complete(ctx, ports.CompletionRequest{System: system, Messages: history})
	if err != nil {
		return "", domain.Wrap(domain.ErrGeneration, "complete", err)
	}
	text := prompts.StripAsterisks(raw)
	if text == "" {
		return "", domain.Wrap(domain.ErrGeneration, "empty completion", nil)
	}
	return text, nil
}

func (p *Pipeline) complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, p.settings.Timeouts.Completion)
	defer cancel()
	return p.deps.Completer.Complete(ctx, req)
}
