package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
)

// Mask replaces every redacted span.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, card-like digit runs and
// phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\b(?:\d[ -]?){13,16}\b`,
	`\+?\d{1,3}[ .\-]?\(?\d{2,3}\)?[ .\-]?\d{3,4}[ .\-]?\d{4}\b`,
}

type piiMiddleware struct {
	next     ports.ConversationStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks spans of message content
// and summary matching the patterns before they are persisted.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	// Clone so the caller's conversation stays untouched.
	cloned := conv.Clone()
	for i := range cloned.Messages {
		cloned.Messages[i].Content = m.mask(cloned.Messages[i].Content)
	}
	cloned.Summary = m.mask(cloned.Summary)

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
