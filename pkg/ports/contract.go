package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionID: id,
			SurveyID:  "contract",
			State:     domain.NewNavigationState(),
			Responses: domain.ResponseMap{},
			UpdatedAt: time.Now().UTC(),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(sessionID)
		snap.State.CurrentStepIndex = 1
		snap.State.History = []int{0, 1}
		snap.Responses["q1"] = "hello"
		snap.Responses["q2"] = []any{"a", "b"}

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, 1, loaded.State.CurrentStepIndex)
		assert.Equal(t, []int{0, 1}, loaded.State.History)
		assert.Equal(t, domain.PhaseReady, loaded.State.Phase)
		assert.Equal(t, "hello", loaded.Responses["q1"])
		assert.Len(t, loaded.Responses["q2"], 2)
	})

	t.Run("Load Returns Isolated Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Responses["q1"] = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "hello", again.Responses["q1"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newSnapshot(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunSubmissionSinkContract verifies a SubmissionSink implementation.
func RunSubmissionSinkContract(t *testing.T, sink SubmissionSink) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := domain.SubmissionResult{
		ID:          "sub-1",
		SurveyID:    "feedback",
		SurveyTitle: "Feedback",
		CompletedAt: base,
		Responses:   domain.ResponseMap{"q1": "hello"},
	}
	second := domain.SubmissionResult{
		ID:          "sub-2",
		SurveyID:    "feedback",
		SurveyTitle: "Feedback",
		CompletedAt: base.Add(time.Minute),
		Responses:   domain.ResponseMap{"q1": "again"},
	}
	other := domain.SubmissionResult{
		ID:          "sub-3",
		SurveyID:    "other",
		SurveyTitle: "Other",
		CompletedAt: base,
		Responses:   domain.ResponseMap{},
	}

	t.Run("Record and List", func(t *testing.T) {
		require.NoError(t, sink.Record(ctx, second))
		require.NoError(t, sink.Record(ctx, first))
		require.NoError(t, sink.Record(ctx, other))

		got, err := sink.Submissions(ctx, "feedback")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "sub-1", got[0].ID)
		assert.Equal(t, "sub-2", got[1].ID)
		assert.Equal(t, "hello", got[0].Responses["q1"])
		assert.True(t, got[0].CompletedAt.Equal(base))
	})

	t.Run("Record Is Idempotent", func(t *testing.T) {
		require.NoError(t, sink.Record(ctx, first))

		got, err := sink.Submissions(ctx, "feedback")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Unknown Survey", func(t *testing.T) {
		got, err := sink.Submissions(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
