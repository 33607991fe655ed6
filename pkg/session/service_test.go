package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/session"
)

func survey() *domain.Survey {
	return &domain.Survey{
		ID:    "fb",
		Title: "Feedback",
		Steps: []domain.Step{
			{ID: "one", Questions: []domain.Question{{ID: "q1", Type: domain.QuestionText, Rules: domain.Rules{Required: true}}}},
			{ID: "two", Questions: []domain.Question{{ID: "q2", Type: domain.QuestionRange}}},
		},
	}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sink := memory.NewSink()
	var diffs []*domain.SnapshotDiff
	var completions int

	svc := session.NewService(survey(), session.NewManager(memory.NewStore()),
		session.WithSubmissionSink(sink),
		session.WithIDGenerator(func() string { return "generated" }),
		session.WithOnComplete(func(domain.SubmissionResult) { completions++ }),
		session.WithChangeListener(func(ctx context.Context, id string, d *domain.SnapshotDiff) {
			diffs = append(diffs, d)
		}),
	)

	view, err := svc.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "generated", view.SessionID)
	require.NotNil(t, view.Step)
	assert.Equal(t, "one", view.Step.ID)

	view, err = svc.Next(ctx, "generated", domain.ResponseMap{})
	require.NoError(t, err)
	require.Len(t, view.Violations, 1)
	assert.Empty(t, diffs, "rejected steps do not change the snapshot")

	view, err = svc.Next(ctx, "generated", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "two", view.Step.ID)
	require.Len(t, diffs, 1)
	assert.Equal(t, "Ann", diffs[0].Responses["q1"])

	view, err = svc.Back(ctx, "generated")
	require.NoError(t, err)
	assert.Equal(t, "one", view.Step.ID)

	_, err = svc.Next(ctx, "generated", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)
	view, err = svc.Next(ctx, "generated", domain.ResponseMap{"q2": 0.5})
	require.NoError(t, err)
	assert.True(t, view.State.Completed)
	assert.Nil(t, view.Step)
	require.NotNil(t, view.Result)

	_, err = svc.Next(ctx, "generated", domain.ResponseMap{})
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)

	// Reloading a completed session never re-notifies.
	_, err = svc.Get(ctx, "generated")
	require.NoError(t, err)
	assert.Equal(t, 1, completions)

	recorded, err := sink.Submissions(ctx, "fb")
	require.NoError(t, err)
	assert.Len(t, recorded, 1)

	view, err = svc.Reset(ctx, "generated")
	require.NoError(t, err)
	assert.Equal(t, domain.NewNavigationState(), view.State)

	require.NoError(t, svc.Delete(ctx, "generated"))
	_, err = svc.Get(ctx, "generated")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "generated"), domain.ErrSessionNotFound)
}

func TestService_StartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := session.NewService(survey(), session.NewManager(memory.NewStore()))

	_, err := svc.Start(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc.Next(ctx, "s-1", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)

	view, err := svc.Start(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.State.CurrentStepIndex, "existing session is resumed")
}

func TestService_UnknownQuestion(t *testing.T) {
	ctx := context.Background()
	svc := session.NewService(survey(), session.NewManager(memory.NewStore()))
	_, err := svc.Start(ctx, "s")
	require.NoError(t, err)

	_, err = svc.Next(ctx, "s", domain.ResponseMap{"nope": 1})
	var unknown *domain.UnknownQuestionError
	assert.ErrorAs(t, err, &unknown)
}

// unreliableSink rejects the first submission it is given.
type unreliableSink struct {
	*memory.Sink
	rejected bool
}

func (u *unreliableSink) Record(ctx context.Context, r domain.SubmissionResult) error {
	if !u.rejected {
		u.rejected = true
		return errors.New("archive unavailable")
	}
	return u.Sink.Record(ctx, r)
}

func TestService_CompletesOnceWhenArchiveFails(t *testing.T) {
	ctx := context.Background()
	var results []domain.SubmissionResult
	svc := session.NewService(survey(), session.NewManager(memory.NewStore()),
		session.WithSubmissionSink(&unreliableSink{Sink: memory.NewSink()}),
		session.WithOnComplete(func(r domain.SubmissionResult) { results = append(results, r) }),
	)

	_, err := svc.Start(ctx, "s")
	require.NoError(t, err)
	_, err = svc.Next(ctx, "s", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)

	_, err = svc.Next(ctx, "s", domain.ResponseMap{})
	require.ErrorContains(t, err, "archive unavailable")
	require.Len(t, results, 1)

	view, err := svc.Get(ctx, "s")
	require.NoError(t, err)
	assert.True(t, view.State.Completed, "completed snapshot is saved before archiving")

	_, err = svc.Next(ctx, "s", domain.ResponseMap{})
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	assert.Len(t, results, 1)
}

func TestService_OnCompleteMayReenter(t *testing.T) {
	ctx := context.Background()
	var svc *session.Service
	var seen *session.View
	svc = session.NewService(survey(), session.NewManager(memory.NewStore()),
		session.WithOnComplete(func(r domain.SubmissionResult) {
			seen, _ = svc.Get(ctx, "s")
		}),
	)

	_, err := svc.Start(ctx, "s")
	require.NoError(t, err)
	_, err = svc.Next(ctx, "s", domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)
	_, err = svc.Next(ctx, "s", domain.ResponseMap{})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.True(t, seen.State.Completed)
}

// Sessions reload from the store on every step, so masked answers reach the
// submission masked while encrypted ones survive.
func TestService_StoreMiddlewareReachesSubmission(t *testing.T) {
	ctx := context.Background()
	pii, err := middleware.NewPIIMiddleware([]string{"^q1$"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: make([]byte, middleware.KeySize)})
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		mw   middleware.Middleware
		want any
	}{
		"masked":    {pii, middleware.Mask},
		"encrypted": {enc, "Ann"},
	} {
		t.Run(name, func(t *testing.T) {
			svc := session.NewService(survey(), session.NewManager(middleware.Chain(memory.NewStore(), tc.mw)))
			_, err := svc.Start(ctx, "s")
			require.NoError(t, err)
			_, err = svc.Next(ctx, "s", domain.ResponseMap{"q1": "Ann"})
			require.NoError(t, err)
			view, err := svc.Next(ctx, "s", domain.ResponseMap{})
			require.NoError(t, err)
			require.NotNil(t, view.Result)
			assert.Equal(t, tc.want, view.Result.Responses["q1"])
		})
	}
}
