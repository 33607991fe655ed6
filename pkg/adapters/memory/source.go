package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Source implements ports.DefinitionSource using an in-memory map.
// Safe for concurrent use.
type Source struct {
	mu   sync.RWMutex
	defs map[string][]byte
}

// NewSource creates a Source with the provided raw definitions keyed by locator.
func NewSource(defs map[string]string) *Source {
	s := &Source{defs: make(map[string][]byte, len(defs))}
	for k, v := range defs {
		s.defs[k] = []byte(v)
	}
	return s
}

// Put adds or replaces a definition.
func (s *Source) Put(locator string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[locator] = append([]byte(nil), data...)
}

// Fetch returns a copy of the definition registered under locator.
func (s *Source) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.defs[locator]
	if !ok {
		return nil, fmt.Errorf("definition not found: %s", locator)
	}
	return append([]byte(nil), data...), nil
}

// Locators returns the registered locators, sorted.
func (s *Source) Locators() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.defs))
	for k := range s.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
