package stepwise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/loader"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/submission"
)

// Outcome is the result of a forward move. See runtime.Outcome.
type Outcome = runtime.Outcome

// ErrNoRenderer is returned by Next when the wizard has no Renderer to
// collect answers from. Headless hosts use Submit instead.
var ErrNoRenderer = errors.New("no renderer configured")

// Wizard is the host integration surface: it loads a survey, drives the
// navigation state machine and keeps a Renderer in sync with it.
//
// A Wizard is safe for concurrent use. Renderer callbacks run while the
// wizard lock is held and must not call back into the Wizard. The
// completion callback runs after the lock is released and may.
type Wizard struct {
	locator    string
	source     ports.DefinitionSource
	renderer   ports.Renderer
	sink       ports.SubmissionSink
	store      ports.StateStore
	sessionID  string
	onComplete domain.SubmitHandler
	hooks      domain.LifecycleHooks
	assembler  *submission.Assembler
	logger     *slog.Logger

	mu         sync.Mutex
	loader     *loader.Loader
	machine    *runtime.Machine
	generation uint64
	visible    bool
}

// Option defines a functional option for configuring the Wizard.
type Option func(*Wizard)

// WithOnComplete registers the callback invoked exactly once per completed session.
func WithOnComplete(fn domain.SubmitHandler) Option {
	return func(w *Wizard) { w.onComplete = fn }
}

// WithRenderer sets the presentation collaborator.
func WithRenderer(r ports.Renderer) Option {
	return func(w *Wizard) { w.renderer = r }
}

// WithSource replaces the definition source (default: file or HTTP by locator).
func WithSource(src ports.DefinitionSource) Option {
	return func(w *Wizard) { w.source = src }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) { w.logger = logger }
}

// WithHooks registers observability hooks on the state machine.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) { w.hooks = w.hooks.Merge(hooks) }
}

// WithSubmissionSink archives every completed submission.
func WithSubmissionSink(sink ports.SubmissionSink) Option {
	return func(w *Wizard) { w.sink = sink }
}

// WithStateStore persists the session under sessionID after every transition
// and resumes it on Start when a snapshot exists.
func WithStateStore(store ports.StateStore, sessionID string) Option {
	return func(w *Wizard) {
		w.store = store
		w.sessionID = sessionID
	}
}

// WithAssembler replaces the submission assembler (clock and ID generator).
func WithAssembler(a *submission.Assembler) Option {
	return func(w *Wizard) { w.assembler = a }
}

// New creates a Wizard for the survey at locator. Nothing is loaded until Start.
func New(locator string, opts ...Option) *Wizard {
	w := &Wizard{locator: locator}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	w.logger = w.logger.With("locator", locator)
	w.loader = loader.New(w.source, loader.WithLogger(w.logger))
	return w
}

// Start loads the survey and initializes a session on its first step, or
// resumes the persisted session when a state store is configured.
//
// The definition is fetched without holding the wizard lock. If Reset or
// another Start happens meanwhile, the load is discarded and
// domain.ErrLoadSuperseded is returned.
func (w *Wizard) Start(ctx context.Context) error {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	survey, err := w.loader.Load(ctx, w.locator)

	var snap *domain.Snapshot
	if err == nil && w.store != nil {
		snap, err = w.loadSnapshot(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		w.logger.Debug("discarding superseded load")
		return domain.ErrLoadSuperseded
	}
	if err != nil {
		return err
	}

	m := w.newMachine()
	if snap != nil {
		if err := m.Restore(ctx, survey, snap, nil); err != nil {
			return fmt.Errorf("failed to resume session %s: %w", w.sessionID, err)
		}
		w.logger.Info("session resumed", "session", w.sessionID)
	} else if _, err := m.Init(ctx, survey, nil); err != nil {
		return err
	}
	w.machine = m

	if err := w.persist(ctx); err != nil {
		return err
	}
	return w.renderCurrent(ctx)
}

func (w *Wizard) loadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := w.store.Load(ctx, w.sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", w.sessionID, err)
	}
	return snap, nil
}

func (w *Wizard) newMachine() *runtime.Machine {
	opts := []runtime.Option{
		runtime.WithLogger(w.logger),
		runtime.WithLifecycleHooks(w.hooks),
	}
	if w.assembler != nil {
		opts = append(opts, runtime.WithAssembler(w.assembler))
	}
	return runtime.NewMachine(opts...)
}

// Show makes the wizard visible and renders the current step.
func (w *Wizard) Show(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.visible = true
	return w.renderCurrent(ctx)
}

// Hide stops rendering. Navigation state is kept.
func (w *Wizard) Hide() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
}

// Visible reports whether the wizard is shown.
func (w *Wizard) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Next collects the answers of the current step from the renderer and submits them.
func (w *Wizard) Next(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.renderer == nil {
		state := w.stateLocked()
		w.mu.Unlock()
		return Outcome{State: state}, ErrNoRenderer
	}
	step, err := w.currentStepLocked()
	if err != nil {
		state := w.stateLocked()
		w.mu.Unlock()
		return Outcome{State: state}, err
	}
	answers, err := w.renderer.CollectAnswers(ctx, step)
	if err != nil {
		state := w.stateLocked()
		w.mu.Unlock()
		return Outcome{State: state}, err
	}
	out, completed, err := w.submitLocked(ctx, step, answers)
	w.mu.Unlock()

	w.notifyComplete(out, completed)
	return out, err
}

// Submit moves forward with explicitly provided answers, for hosts without a renderer.
func (w *Wizard) Submit(ctx context.Context, answers domain.ResponseMap) (Outcome, error) {
	w.mu.Lock()
	step, err := w.currentStepLocked()
	if err != nil {
		state := w.stateLocked()
		w.mu.Unlock()
		return Outcome{State: state}, err
	}
	out, completed, err := w.submitLocked(ctx, step, answers)
	w.mu.Unlock()

	w.notifyComplete(out, completed)
	return out, err
}

// submitLocked advances the machine. completed reports that this call
// finished the session and the completed state was persisted; later
// archive or presentation errors do not clear it.
func (w *Wizard) submitLocked(ctx context.Context, step domain.Step, answers domain.ResponseMap) (Outcome, bool, error) {
	out, err := w.machine.GoNext(ctx, answers)
	if err != nil {
		return out, false, err
	}

	if !out.Valid() {
		if reporter, ok := w.renderer.(ports.ViolationReporter); ok && w.visible {
			if err := reporter.ReportViolations(ctx, step, out.Violations); err != nil {
				return out, false, fmt.Errorf("failed to report violations: %w", err)
			}
		}
		return out, false, nil
	}

	if err := w.persist(ctx); err != nil {
		return out, false, err
	}

	if out.Result == nil {
		return out, false, w.renderCurrent(ctx)
	}
	if w.sink != nil {
		if err := w.sink.Record(ctx, *out.Result); err != nil {
			return out, true, fmt.Errorf("failed to record submission: %w", err)
		}
	}
	if presenter, ok := w.renderer.(ports.CompletionPresenter); ok && w.visible {
		if err := presenter.PresentCompletion(ctx, *out.Result); err != nil {
			return out, true, fmt.Errorf("failed to present completion: %w", err)
		}
	}
	return out, true, nil
}

func (w *Wizard) notifyComplete(out Outcome, completed bool) {
	if completed && w.onComplete != nil {
		w.onComplete(*out.Result)
	}
}

// Back returns to the previously shown step.
func (w *Wizard) Back(ctx context.Context) (domain.NavigationState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.machine == nil {
		return w.stateLocked(), domain.ErrNotInitialized
	}
	state, err := w.machine.GoBack(ctx)
	if err != nil {
		return state, err
	}
	if err := w.persist(ctx); err != nil {
		return state, err
	}
	return state, w.renderCurrent(ctx)
}

// Reset clears every answer and returns to the first step. It also discards
// any definition load still in flight. On a wizard that has not finished
// starting it only does the latter.
func (w *Wizard) Reset(ctx context.Context) (domain.NavigationState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.generation++
	if w.machine == nil {
		return w.stateLocked(), nil
	}
	state, err := w.machine.Reset(ctx)
	if err != nil {
		return state, err
	}
	if err := w.persist(ctx); err != nil {
		return state, err
	}
	return state, w.renderCurrent(ctx)
}

// State returns the current navigation state.
func (w *Wizard) State() domain.NavigationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// Survey returns the loaded survey, or nil before Start completes.
func (w *Wizard) Survey() *domain.Survey {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.machine == nil {
		return nil
	}
	return w.machine.Survey()
}

// Responses returns a copy of the stored answers.
func (w *Wizard) Responses() domain.ResponseMap {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.machine == nil {
		return domain.ResponseMap{}
	}
	return w.machine.Responses()
}

// CurrentStep returns the step being shown.
func (w *Wizard) CurrentStep() (domain.Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentStepLocked()
}

func (w *Wizard) currentStepLocked() (domain.Step, error) {
	if w.machine == nil {
		return domain.Step{}, domain.ErrNotInitialized
	}
	return w.machine.CurrentStep()
}

func (w *Wizard) stateLocked() domain.NavigationState {
	if w.machine == nil {
		return domain.NavigationState{Phase: domain.PhaseNotInitialized}
	}
	return w.machine.State()
}

func (w *Wizard) renderCurrent(ctx context.Context) error {
	if !w.visible || w.renderer == nil || w.machine == nil {
		return nil
	}
	step, err := w.machine.CurrentStep()
	if errors.Is(err, domain.ErrSessionCompleted) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := w.renderer.RenderStep(ctx, step, w.machine.Responses()); err != nil {
		return fmt.Errorf("failed to render step %s: %w", step.ID, err)
	}
	return nil
}

func (w *Wizard) persist(ctx context.Context) error {
	if w.store == nil || w.machine == nil {
		return nil
	}
	if err := w.store.Save(ctx, w.sessionID, w.machine.Snapshot(w.sessionID)); err != nil {
		return fmt.Errorf("failed to save session %s: %w", w.sessionID, err)
	}
	return nil
}
