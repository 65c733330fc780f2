package memory

import (
	"context"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

// Disabled is a MemoryStore that remembers nothing. It backs deployments
// without an embedding provider.
type Disabled struct{}

var _ ports.MemoryStore = Disabled{}

func (Disabled) Write(context.Context, string, domain.Message) error { return nil }

func (Disabled) Query(context.Context, string, string, int) ([]string, error) { return nil, nil }
