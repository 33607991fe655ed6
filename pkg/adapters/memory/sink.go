package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Sink implements ports.SubmissionSink in memory.
type Sink struct {
	mu      sync.RWMutex
	results map[string]domain.SubmissionResult
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{results: make(map[string]domain.SubmissionResult)}
}

// Record stores the submission unless its ID was already recorded.
func (s *Sink) Record(ctx context.Context, result domain.SubmissionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[result.ID]; ok {
		return nil
	}
	result.Responses = result.Responses.Clone()
	s.results[result.ID] = result
	return nil
}

// Submissions returns the survey's submissions, oldest first.
func (s *Sink) Submissions(ctx context.Context, surveyID string) ([]domain.SubmissionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.SubmissionResult{}
	for _, r := range s.results {
		if r.SurveyID != surveyID {
			continue
		}
		r.Responses = r.Responses.Clone()
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}
