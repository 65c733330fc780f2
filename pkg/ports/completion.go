package ports

import (
	"context"

	"github.com/aretw0/companion/pkg/domain"
)

// Schema describes the JSON object a structured completion must return.
// Properties maps each field name to its JSON Schema fragment.
type Schema struct {
	Name       string
	Properties map[string]map[string]any
	Required   []string
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	required := make([]any, 0, len(s.Required))
	for _, r := range s.Required {
		required = append(required, r)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// CompletionRequest is a single call to the completion service.
type CompletionRequest struct {
	// System is the instruction prompt. It may be empty.
	System string

	// Messages is the conversation history the model continues.
	Messages []domain.Message

	// Schema, when set, requests a JSON object conforming to it.
	Schema *Schema

	// Temperature overrides the provider default when set.
	Temperature *float64
}

// Completer produces text (or a JSON document when a Schema is given) from a
// prompt and history. Implementations return transport and provider failures
// as plain errors; callers tag them with the appropriate domain error kind.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
