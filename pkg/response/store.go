// Package response holds the answers of one wizard session.
package response

import (
	"reflect"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Store maps question IDs to answers for the lifetime of a session.
// It performs no validation beyond rejecting unknown question IDs; validation
// belongs to the navigation state machine. Store is not safe for concurrent use.
type Store struct {
	known   map[string]struct{}
	answers domain.ResponseMap
}

// NewStore creates an empty store that accepts the given question IDs.
func NewStore(questionIDs ...string) *Store {
	known := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		known[id] = struct{}{}
	}
	return &Store{
		known:   known,
		answers: make(domain.ResponseMap),
	}
}

// NewStoreFor creates an empty store accepting every question of the survey.
func NewStoreFor(survey *domain.Survey) *Store {
	return NewStore(survey.QuestionIDs()...)
}

func (s *Store) check(questionID string) error {
	if _, ok := s.known[questionID]; !ok {
		return &domain.UnknownQuestionError{QuestionID: questionID}
	}
	return nil
}

// Set inserts or overwrites an answer. Setting the same value twice is a no-op.
func (s *Store) Set(questionID string, value any) error {
	if err := s.check(questionID); err != nil {
		return err
	}
	if current, ok := s.answers[questionID]; ok && reflect.DeepEqual(current, value) {
		return nil
	}
	s.answers[questionID] = domain.ResponseMap{questionID: value}.Clone()[questionID]
	return nil
}

// Get returns the answer for a question, if any.
func (s *Store) Get(questionID string) (any, bool) {
	v, ok := s.answers[questionID]
	return v, ok
}

// Delete removes the answer for a question.
func (s *Store) Delete(questionID string) error {
	if err := s.check(questionID); err != nil {
		return err
	}
	delete(s.answers, questionID)
	return nil
}

// Snapshot returns an independent copy of the current answers.
func (s *Store) Snapshot() domain.ResponseMap {
	return s.answers.Clone()
}

// Restore replaces every answer with the given map, rejecting unknown IDs.
// On error the store is left unchanged.
func (s *Store) Restore(answers domain.ResponseMap) error {
	for id := range answers {
		if err := s.check(id); err != nil {
			return err
		}
	}
	s.answers = answers.Clone()
	return nil
}

// Clear removes all answers.
func (s *Store) Clear() {
	s.answers = make(domain.ResponseMap)
}

// Len returns the number of stored answers.
func (s *Store) Len() int {
	return len(s.answers)
}
