package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Mask replaces the answers hidden by the PII middleware.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the answers of questions
// whose ID matches one of the patterns. Masked answers cannot be recovered, so
// a resumed session shows Mask in their place. Hosts that reload the session
// on every step, such as the HTTP and MCP adapters, also submit Mask for those
// answers. Use the encryption middleware when the answers must be kept.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// The caller keeps using snap, so mask a copy.
	cloned := snap.Clone()
	maskMap(cloned.Responses, m.patterns)

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		// Matrix answers are keyed by row.
		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case map[string]string:
			for row := range sub {
				for _, p := range patterns {
					if p.MatchString(row) {
						sub[row] = Mask
						break
					}
				}
			}
		}
	}
}
