package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// StateStore defines the interface for persisting session snapshots.
// This allows for "Stop & Resume" survey sessions.
type StateStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// SubmissionSink archives completed submissions.
type SubmissionSink interface {
	// Record stores a completed submission. Recording the same ID twice is a no-op.
	Record(ctx context.Context, result domain.SubmissionResult) error

	// Submissions returns the recorded submissions of a survey, oldest first.
	Submissions(ctx context.Context, surveyID string) ([]domain.SubmissionResult, error)
}
