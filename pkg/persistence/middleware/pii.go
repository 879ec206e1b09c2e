package middleware

import (
	"context"
	"regexp"

	"github.com/treelang/treelang/pkg/ports"
)

type piiMiddleware struct {
	next     ports.Memory
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks content matching
// the given patterns before it reaches the backend. Already-stored
// history is returned as is.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Memory) ports.Memory {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, session string, msg ports.Message) error {
	// Work on a copy so the caller's message is left untouched.
	masked := msg
	for _, p := range m.patterns {
		masked.Content = p.ReplaceAllString(masked.Content, "***")
	}
	return m.next.Append(ctx, session, masked)
}

func (m *piiMiddleware) History(ctx context.Context, session string, limit int) ([]ports.Message, error) {
	return m.next.History(ctx, session, limit)
}

func (m *piiMiddleware) Clear(ctx context.Context, session string) error {
	return m.next.Clear(ctx, session)
}
