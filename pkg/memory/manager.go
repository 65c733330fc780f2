package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/internal/prompts"
	"github.com/aretw0/companion/internal/structured"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/google/uuid"
)

// analysisSchema is the structured answer of the importance check.
var analysisSchema = &ports.Schema{
	Name: "memory_analysis",
	Properties: map[string]map[string]any{
		"is_important": {
			"type":        "boolean",
			"description": "Whether the message holds personal information worth remembering.",
		},
		"formatted_memory": {
			"type":        "string",
			"description": "The fact as a short third-person statement, empty when not important.",
		},
	},
	Required: []string{"is_important", "formatted_memory"},
}

type analysis struct {
	IsImportant     bool   `json:"is_important"`
	FormattedMemory string `json:"formatted_memory"`
}

// Config tunes a Manager.
type Config struct {
	// DuplicateThreshold is the similarity at or above which a new fact is
	// considered already known.
	DuplicateThreshold float64 `mapstructure:"similarity_threshold"`
	// MinScore drops query hits scoring below it.
	MinScore float64 `mapstructure:"min_score"`
	// AnalysisTemperature is passed to the importance check.
	AnalysisTemperature float64 `mapstructure:"analysis_temperature"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{DuplicateThreshold: 0.9, MinScore: 0, AnalysisTemperature: 0.1}
}

// Manager implements ports.MemoryStore.
type Manager struct {
	analyzer ports.Completer
	embedder ports.Embedder
	index    Index
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) ManagerOption {
	return func(m *Manager) { m.cfg = cfg }
}

// NewManager creates a Manager.
func NewManager(analyzer ports.Completer, embedder ports.Embedder, index Index, opts ...ManagerOption) *Manager {
	m := &Manager{
		analyzer: analyzer,
		embedder: embedder,
		index:    index,
		cfg:      DefaultConfig(),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ ports.MemoryStore = (*Manager)(nil)

// Write keeps msg as a fact when it is a user message the analyzer judges
// important and no near-identical fact is already stored.
func (m *Manager) Write(ctx context.Context, sessionKey string, msg domain.Message) error {
	if msg.Role != domain.RoleUser || strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	fact, ok, err := m.analyze(ctx, msg.Content)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	vec, err := m.embedder.Embed(ctx, fact)
	if err != nil {
		return fmt.Errorf("embed fact: %w", err)
	}

	hits, err := m.index.Search(ctx, sessionKey, vec, 1)
	if err != nil {
		return fmt.Errorf("search duplicates: %w", err)
	}
	if len(hits) > 0 && hits[0].Score >= m.cfg.DuplicateThreshold {
		m.logger.Debug("Fact already known", "session_id", sessionKey, "score", hits[0].Score)
		return nil
	}

	err = m.index.Add(ctx, sessionKey, Fact{
		ID:        uuid.NewString(),
		Text:      fact,
		Vector:    vec,
		CreatedAt: m.now(),
	})
	if err != nil {
		return fmt.Errorf("store fact: %w", err)
	}
	m.logger.Info("Fact remembered", "session_id", sessionKey)
	return nil
}

// Query returns up to topK facts relevant to text, best first.
func (m *Manager) Query(ctx context.Context, sessionKey string, text string, topK int) ([]string, error) {
	if strings.TrimSpace(text) == "" || topK <= 0 {
		return nil, nil
	}
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := m.index.Search(ctx, sessionKey, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Score < m.cfg.MinScore {
			continue
		}
		out = append(out, h.Fact.Text)
	}
	return out, nil
}

func (m *Manager) analyze(ctx context.Context, content string) (string, bool, error) {
	raw, err := m.analyzer.Complete(ctx, ports.CompletionRequest{
		Messages:    []domain.Message{domain.UserMessage(prompts.MemoryAnalysisPrompt(content))},
		Schema:      analysisSchema,
		Temperature: domain.Ptr(m.cfg.AnalysisTemperature),
	})
	if err != nil {
		return "", false, fmt.Errorf("analyze message: %w", err)
	}
	var a analysis
	if err := structured.Decode(raw, analysisSchema, &a); err != nil {
		return "", false, fmt.Errorf("decode analysis: %w", err)
	}
	fact := strings.TrimSpace(a.FormattedMemory)
	return fact, a.IsImportant && fact != "", nil
}
