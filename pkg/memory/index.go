package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Fact is a stored memory.
type Fact struct {
	ID        string
	Text      string
	Vector    []float32
	CreatedAt time.Time
}

// Match is a search hit.
type Match struct {
	Fact  Fact
	Score float64
}

// Index stores fact vectors per session key and answers nearest-neighbour
// queries by cosine similarity, best first.
type Index interface {
	Add(ctx context.Context, sessionKey string, fact Fact) error
	Search(ctx context.Context, sessionKey string, vector []float32, k int) ([]Match, error)
}

// InMemoryIndex is a process-local Index. It is safe for concurrent use.
type InMemoryIndex struct {
	mu    sync.RWMutex
	facts map[string][]Fact
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{facts: make(map[string][]Fact)}
}

func (x *InMemoryIndex) Add(ctx context.Context, sessionKey string, fact Fact) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	fact.Vector = append([]float32(nil), fact.Vector...)
	x.facts[sessionKey] = append(x.facts[sessionKey], fact)
	return nil
}

func (x *InMemoryIndex) Search(ctx context.Context, sessionKey string, vector []float32, k int) ([]Match, error) {
	x.mu.RLock()
	facts := x.facts[sessionKey]
	matches := make([]Match, 0, len(facts))
	for _, f := range facts {
		matches = append(matches, Match{Fact: f, Score: CosineSimilarity(vector, f.Vector)})
	}
	x.mu.RUnlock()

	return rank(matches, k), nil
}

// rank sorts matches best first, oldest first on ties, and keeps k.
func rank(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Fact.CreatedAt.Before(matches[j].Fact.CreatedAt)
	})
	if k >= 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
