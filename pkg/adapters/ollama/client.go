// Package ollama talks to a local Ollama server for chat completions and
// embeddings.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/companion/internal/httpkit"
	"github.com/aretw0/companion/pkg/ports"
)

const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultChatModel      = "llama3.1"
	DefaultEmbeddingModel = "nomic-embed-text"
)

// Config configures the client.
type Config struct {
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client implements ports.Completer and ports.Embedder.
type Client struct {
	baseURL        string
	chatModel      string
	embeddingModel string
	http           *http.Client
}

var (
	_ ports.Completer = (*Client)(nil)
	_ ports.Embedder  = (*Client)(nil)
)

// New creates a client. Empty fields take the defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		http:           httpkit.NewClient(httpkit.WithTimeout(cfg.Timeout)),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   any       `json:"format,omitempty"`
	Options  *options  `json:"options,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

// Complete sends a non-streaming chat request. A schema is passed as the
// structured output format.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	body := chatRequest{Model: c.chatModel}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, message{Role: string(m.Role), Content: m.Content})
	}
	if req.Schema != nil {
		body.Format = req.Schema.JSONSchema()
	}
	if req.Temperature != nil {
		body.Options = &options{Temperature: req.Temperature}
	}

	var resp chatResponse
	if err := httpkit.DoJSON(ctx, c.http, c.baseURL+"/api/chat", nil, body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return resp.Message.Content, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed creates an embedding for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	req := embedRequest{Model: c.embeddingModel, Prompt: text}
	if err := httpkit.DoJSON(ctx, c.http, c.baseURL+"/api/embeddings", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embeddings: empty vector for model %s", c.embeddingModel)
	}
	return resp.Embedding, nil
}
