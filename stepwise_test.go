package stepwise_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

const feedback = `
id: feedback
title: Feedback
steps:
  - id: about
    questions:
      - {id: q1, type: text, prompt: "Name?", required: true}
  - id: rating
    questions:
      - {id: score, type: likert, prompt: "How was it?"}
`

// fakeRenderer answers each step from a queue and records what it was asked to draw.
type fakeRenderer struct {
	answers    []domain.ResponseMap
	rendered   []string
	violations [][]domain.Violation
	completed  []domain.SubmissionResult
}

func (f *fakeRenderer) RenderStep(ctx context.Context, step domain.Step, answers domain.ResponseMap) error {
	f.rendered = append(f.rendered, step.ID)
	return nil
}

func (f *fakeRenderer) CollectAnswers(ctx context.Context, step domain.Step) (domain.ResponseMap, error) {
	next := f.answers[0]
	f.answers = f.answers[1:]
	return next, nil
}

func (f *fakeRenderer) ReportViolations(ctx context.Context, step domain.Step, v []domain.Violation) error {
	f.violations = append(f.violations, v)
	return nil
}

func (f *fakeRenderer) PresentCompletion(ctx context.Context, r domain.SubmissionResult) error {
	f.completed = append(f.completed, r)
	return nil
}

func newWizard(t *testing.T, r ports.Renderer, opts ...stepwise.Option) (*stepwise.Wizard, *[]domain.SubmissionResult) {
	t.Helper()
	var done []domain.SubmissionResult
	src := memory.NewSource(map[string]string{"feedback.yaml": feedback})
	opts = append([]stepwise.Option{
		stepwise.WithSource(src),
		stepwise.WithRenderer(r),
		stepwise.WithOnComplete(func(res domain.SubmissionResult) { done = append(done, res) }),
	}, opts...)
	return stepwise.New("feedback.yaml", opts...), &done
}

func TestWizard_FullRun(t *testing.T) {
	ctx := context.Background()
	r := &fakeRenderer{answers: []domain.ResponseMap{
		{"q1": ""},
		{"q1": "Ann"},
		{"score": 4},
	}}
	sink := memory.NewSink()
	w, done := newWizard(t, r, stepwise.WithSubmissionSink(sink))

	assert.Equal(t, domain.PhaseNotInitialized, w.State().Phase)
	require.NoError(t, w.Start(ctx))
	assert.Empty(t, r.rendered, "nothing is drawn while hidden")

	require.NoError(t, w.Show(ctx))
	assert.True(t, w.Visible())
	assert.Equal(t, []string{"about"}, r.rendered)

	out, err := w.Next(ctx)
	require.NoError(t, err)
	assert.False(t, out.Valid())
	require.Len(t, r.violations, 1)

	out, err = w.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.State.CurrentStepIndex)
	assert.Equal(t, []string{"about", "rating"}, r.rendered)

	out, err = w.Next(ctx)
	require.NoError(t, err)
	assert.True(t, out.State.Completed)
	require.Len(t, *done, 1)
	require.Len(t, r.completed, 1)
	assert.Equal(t, domain.ResponseMap{"q1": "Ann", "score": 4.0}, (*done)[0].Responses)

	recorded, err := sink.Submissions(ctx, "feedback")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, (*done)[0].ID, recorded[0].ID)

	_, err = w.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestWizard_BackAndReset(t *testing.T) {
	ctx := context.Background()
	w, _ := newWizard(t, nil)
	require.NoError(t, w.Start(ctx))

	_, err := w.Next(ctx)
	assert.ErrorIs(t, err, stepwise.ErrNoRenderer)

	_, err = w.Submit(ctx, domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)

	state, err := w.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentStepIndex)
	assert.Equal(t, "Ann", w.Responses()["q1"], "answers survive going back")

	state, err = w.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NewNavigationState(), state)
	assert.Empty(t, w.Responses())
	assert.Equal(t, "feedback", w.Survey().ID)
}

func TestWizard_DefinitionError(t *testing.T) {
	src := memory.NewSource(map[string]string{"bad.yaml": "steps: []"})
	w := stepwise.New("bad.yaml", stepwise.WithSource(src))

	err := w.Start(context.Background())
	var defErr *domain.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Nil(t, w.Survey())
}

func TestWizard_ResetSupersedesLoad(t *testing.T) {
	release := make(chan struct{})
	fetching := make(chan struct{})
	src := ports.DefinitionSourceFunc(func(ctx context.Context, locator string) ([]byte, error) {
		close(fetching)
		<-release
		return []byte(feedback), nil
	})
	w := stepwise.New("slow.yaml", stepwise.WithSource(src))

	var wg sync.WaitGroup
	var startErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		startErr = w.Start(context.Background())
	}()

	select {
	case <-fetching:
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}
	_, err := w.Reset(context.Background())
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, startErr, domain.ErrLoadSuperseded)
	assert.Equal(t, domain.PhaseNotInitialized, w.State().Phase)
}

func TestWizard_ResumesFromStateStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first, _ := newWizard(t, nil, stepwise.WithStateStore(store, "s-1"))
	require.NoError(t, first.Start(ctx))
	_, err := first.Submit(ctx, domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)

	second, done := newWizard(t, nil, stepwise.WithStateStore(store, "s-1"))
	require.NoError(t, second.Start(ctx))
	assert.Equal(t, 1, second.State().CurrentStepIndex)
	assert.Equal(t, "Ann", second.Responses()["q1"])

	_, err = second.Submit(ctx, domain.ResponseMap{"score": "5"})
	require.NoError(t, err)
	require.Len(t, *done, 1)

	snap, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, snap.State.Completed)
}

func TestWizard_OnCompleteMayUseWizard(t *testing.T) {
	ctx := context.Background()
	src := memory.NewSource(map[string]string{"feedback.yaml": feedback})

	var w *stepwise.Wizard
	var seen domain.NavigationState
	w = stepwise.New("feedback.yaml",
		stepwise.WithSource(src),
		stepwise.WithOnComplete(func(domain.SubmissionResult) {
			seen = w.State()
			w.Hide()
		}),
	)
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Show(ctx))

	finished := make(chan error, 1)
	go func() {
		if _, err := w.Submit(ctx, domain.ResponseMap{"q1": "Ann"}); err != nil {
			finished <- err
			return
		}
		_, err := w.Submit(ctx, domain.ResponseMap{})
		finished <- err
	}()

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback blocked on the wizard")
	}
	assert.True(t, seen.Completed)
	assert.False(t, w.Visible())
}

// flakySink fails the first Record call.
type flakySink struct {
	*memory.Sink
	failed bool
}

func (f *flakySink) Record(ctx context.Context, r domain.SubmissionResult) error {
	if !f.failed {
		f.failed = true
		return errors.New("archive unavailable")
	}
	return f.Sink.Record(ctx, r)
}

func TestWizard_OnCompleteSurvivesArchiveFailure(t *testing.T) {
	ctx := context.Background()
	sink := &flakySink{Sink: memory.NewSink()}
	w, done := newWizard(t, nil, stepwise.WithSubmissionSink(sink))
	require.NoError(t, w.Start(ctx))

	_, err := w.Submit(ctx, domain.ResponseMap{"q1": "Ann"})
	require.NoError(t, err)
	out, err := w.Submit(ctx, domain.ResponseMap{})
	require.ErrorContains(t, err, "archive unavailable")
	assert.True(t, out.State.Completed)
	require.Len(t, *done, 1)

	_, err = w.Submit(ctx, domain.ResponseMap{})
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	assert.Len(t, *done, 1)
}
