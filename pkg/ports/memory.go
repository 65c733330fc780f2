package ports

import (
	"context"

	"github.com/aretw0/companion/pkg/domain"
)

// MemoryStore is the long-term memory collaborator. Facts are partitioned by
// sessionKey so concurrent sessions never observe each other's memories.
type MemoryStore interface {
	// Write offers a message for retention. The store decides whether it is
	// worth remembering.
	Write(ctx context.Context, sessionKey string, msg domain.Message) error

	// Query returns up to topK stored facts relevant to text, most relevant first.
	Query(ctx context.Context, sessionKey string, text string, topK int) ([]string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
