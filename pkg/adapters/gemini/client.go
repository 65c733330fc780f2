// Package gemini adapts Google's Gemini API (google.golang.org/genai) to the
// completion and embedding ports.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"google.golang.org/genai"
)

const (
	DefaultChatModel      = "gemini-2.0-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// Config configures the client.
type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	// TaskType tunes embeddings; see the Gemini embeddings guide.
	TaskType string
}

// Client implements ports.Completer and ports.Embedder.
type Client struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	taskType       string
}

var (
	_ ports.Completer = (*Client)(nil)
	_ ports.Embedder  = (*Client)(nil)
)

// New creates a Gemini client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "SEMANTIC_SIMILARITY"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{
		client:         client,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		taskType:       cfg.TaskType,
	}, nil
}

// Complete generates content for the request.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toSchema(req.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, toContents(req.Messages), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: c.taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, errors.New("gemini embed: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

func toContents(msgs []domain.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

// toSchema converts the JSON Schema fragments of a ports.Schema into the
// OpenAPI subset Gemini accepts.
func toSchema(s *ports.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
		Required:   append([]string(nil), s.Required...),
	}
	for name, frag := range s.Properties {
		out.Properties[name] = fragment(frag)
	}
	return out
}

func fragment(frag map[string]any) *genai.Schema {
	out := &genai.Schema{}
	switch frag["type"] {
	case "string":
		out.Type = genai.TypeString
	case "boolean":
		out.Type = genai.TypeBoolean
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "array":
		out.Type = genai.TypeArray
	default:
		out.Type = genai.TypeObject
	}
	if d, ok := frag["description"].(string); ok {
		out.Description = d
	}
	switch enum := frag["enum"].(type) {
	case []string:
		out.Enum = append([]string(nil), enum...)
	case []any:
		for _, v := range enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}
