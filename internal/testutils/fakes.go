// Package testutils provides scripted collaborators for exercising turns
// without network access.
package testutils

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

// Request kinds recognised by Classify.
const (
	KindRouter   = "router"
	KindScenario = "scenario"
	KindMemory   = "memory"
	KindSummary  = "summary"
	KindReply    = "reply"
)

// Classify names the purpose of a completion request from its shape.
func Classify(req ports.CompletionRequest) string {
	if req.Schema != nil {
		switch req.Schema.Name {
		case "router_decision":
			return KindRouter
		case "image_scenario":
			return KindScenario
		case "memory_analysis":
			return KindMemory
		}
	}
	if req.System == "" {
		return KindSummary
	}
	return KindReply
}

// Script drives a Completer. Zero fields get sensible answers.
type Script struct {
	Route       string
	ImagePrompt string
	Reply       string
	Summary     string
	// Facts maps a message fragment to the memory extracted from any message
	// containing it.
	Facts map[string]string
	// Errors fails every request of the given kind.
	Errors map[string]error
	// Hold parks requests of the given kind until the channel is closed or
	// the request's context ends.
	Hold map[string]chan struct{}
}

// Completer is a scripted ports.Completer that records its requests.
type Completer struct {
	mu     sync.Mutex
	script Script
	calls  []ports.CompletionRequest
}

// NewCompleter returns a Completer answering from s.
func NewCompleter(s Script) *Completer {
	if s.Route == "" {
		s.Route = "conversation"
	}
	if s.ImagePrompt == "" {
		s.ImagePrompt = "a watercolor lighthouse at dusk"
	}
	if s.Reply == "" {
		s.Reply = "Sounds great!"
	}
	if s.Summary == "" {
		s.Summary = "The user and the companion chatted."
	}
	return &Completer{script: s}
}

func (c *Completer) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind := Classify(req)
	if err := wait(ctx, c.script.Hold[kind]); err != nil {
		return "", err
	}
	if err := c.script.Errors[kind]; err != nil {
		return "", err
	}

	switch kind {
	case KindRouter:
		return marshal(map[string]string{"response_type": c.script.Route}), nil
	case KindScenario:
		return marshal(map[string]string{"image_prompt": c.script.ImagePrompt}), nil
	case KindMemory:
		var content string
		if n := len(req.Messages); n > 0 {
			content = req.Messages[n-1].Content
		}
		for key, fact := range c.script.Facts {
			if strings.Contains(content, key) {
				return marshal(map[string]any{"is_important": true, "formatted_memory": fact}), nil
			}
		}
		return marshal(map[string]any{"is_important": false, "formatted_memory": ""}), nil
	case KindSummary:
		return c.script.Summary, nil
	default:
		return c.script.Reply, nil
	}
}

// Calls returns the recorded requests of the given kind.
func (c *Completer) Calls(kind string) []ports.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ports.CompletionRequest
	for _, req := range c.calls {
		if Classify(req) == kind {
			out = append(out, req)
		}
	}
	return out
}

// wait blocks until gate is closed or ctx ends. A nil gate does not block.
func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func marshal(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Memory is an in-process ports.MemoryStore keyed by session.
type Memory struct {
	mu       sync.Mutex
	facts    map[string][]string
	writes   []domain.Message
	queries  []string
	WriteErr error
	QueryErr error
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{facts: make(map[string][]string)}
}

// Remember seeds a fact for sessionKey.
func (m *Memory) Remember(sessionKey string, facts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[sessionKey] = append(m.facts[sessionKey], facts...)
}

func (m *Memory) Write(ctx context.Context, sessionKey string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, msg)
	return m.WriteErr
}

func (m *Memory) Query(ctx context.Context, sessionKey string, text string, topK int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, text)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	facts := m.facts[sessionKey]
	if len(facts) > topK {
		facts = facts[:topK]
	}
	return append([]string(nil), facts...), nil
}

// Writes returns the messages offered for retention.
func (m *Memory) Writes() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.writes...)
}

// Queries returns the query texts received.
func (m *Memory) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Images is a ports.ImageGenerator returning fixed bytes.
type Images struct {
	mu      sync.Mutex
	prompts []string
	Data    []byte
	Ext     string
	Err     error
	// Hold, when set, parks Generate until closed or the context ends.
	Hold chan struct{}
}

// NewImages returns an Images fake producing a small webp payload.
func NewImages() *Images {
	return &Images{Data: []byte("RIFF....WEBPVP8 "), Ext: ".webp"}
}

func (g *Images) Generate(ctx context.Context, prompt string) (ports.Image, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if err := wait(ctx, g.Hold); err != nil {
		return ports.Image{}, err
	}
	if g.Err != nil {
		return ports.Image{}, g.Err
	}
	return ports.Image{Data: g.Data, Ext: g.Ext}, nil
}

// Prompts returns the prompts received.
func (g *Images) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Speech is a ports.SpeechSynthesizer returning fixed bytes. Like the real
// synthesizers it validates the text first.
type Speech struct {
	mu    sync.Mutex
	texts []string
	Data  []byte
	Err   error
	// Hold, when set, parks Synthesize until closed or the context ends.
	Hold chan struct{}
}

// NewSpeech returns a Speech fake producing a small mp3 payload.
func NewSpeech() *Speech {
	return &Speech{Data: []byte("ID3\x04fake-mp3")}
}

func (s *Speech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ports.ValidateSpeechText(text); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if err := wait(ctx, s.Hold); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Data, nil
}

// Texts returns the texts synthesized.
func (s *Speech) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Embedder is a deterministic bag-of-words ports.Embedder. Texts sharing more
// words score closer; identical texts score 1.
type Embedder struct {
	Dim int
	Err error
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	dim := e.Dim
	if dim == 0 {
		dim = 64
	}
	vec := make([]float32, dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,!?'\"")))
		vec[h.Sum32()%uint32(dim)]++
	}
	return vec, nil
}
