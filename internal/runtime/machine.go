package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/response"
	"github.com/aretw0/stepwise/pkg/submission"
)

// Outcome is the result of a GoNext call.
type Outcome struct {
	State domain.NavigationState `json:"state"`

	// Violations is non-empty when validation rejected the advance.
	Violations []domain.Violation `json:"violations,omitempty"`

	// Result is set on the call that completed the session.
	Result *domain.SubmissionResult `json:"result,omitempty"`
}

// Valid reports whether the step passed validation.
func (o Outcome) Valid() bool { return len(o.Violations) == 0 }

// Machine is the navigation state machine of a single session.
type Machine struct {
	survey    *domain.Survey
	store     *response.Store
	state     domain.NavigationState
	onSubmit  domain.SubmitHandler
	submitted bool

	assembler *submission.Assembler
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) { m.hooks = m.hooks.Merge(hooks) }
}

// WithAssembler replaces the submission assembler.
func WithAssembler(a *submission.Assembler) Option {
	return func(m *Machine) {
		if a != nil {
			m.assembler = a
		}
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine creates an uninitialized Machine.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		state:     domain.NavigationState{Phase: domain.PhaseNotInitialized},
		assembler: submission.NewAssembler(),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init binds the survey and positions the session on the first step with an
// empty response store. Calling Init again starts a fresh session.
func (m *Machine) Init(ctx context.Context, survey *domain.Survey, onSubmit domain.SubmitHandler) (domain.NavigationState, error) {
	if err := checkSurvey(survey); err != nil {
		return m.State(), err
	}

	m.survey = survey
	m.store = response.NewStoreFor(survey)
	m.state = domain.NewNavigationState()
	m.onSubmit = onSubmit
	m.submitted = false

	m.logger.Debug("session initialized", "survey", survey.ID, "steps", len(survey.Steps))
	m.emitStepEnter(ctx, 0)
	return m.State(), nil
}

func checkSurvey(survey *domain.Survey) error {
	if survey == nil {
		return &domain.NavigationError{Reason: "survey is nil"}
	}
	if len(survey.Steps) == 0 {
		return &domain.NavigationError{Reason: "survey has no steps"}
	}
	if survey.Steps[0].When != nil {
		return &domain.NavigationError{Reason: "first step cannot be conditional"}
	}
	return nil
}

// Survey returns the bound survey, or nil before Init.
func (m *Machine) Survey() *domain.Survey { return m.survey }

// State returns a copy of the navigation state.
func (m *Machine) State() domain.NavigationState { return m.state.Clone() }

// Responses returns a deep copy of every stored answer.
func (m *Machine) Responses() domain.ResponseMap {
	if m.store == nil {
		return domain.ResponseMap{}
	}
	return m.store.Snapshot()
}

// CurrentStep returns the step being shown.
func (m *Machine) CurrentStep() (domain.Step, error) {
	if err := m.checkNavigable(); err != nil {
		return domain.Step{}, err
	}
	return m.survey.Steps[m.state.CurrentStepIndex], nil
}

func (m *Machine) checkNavigable() error {
	switch m.state.Phase {
	case domain.PhaseNotInitialized:
		return domain.ErrNotInitialized
	case domain.PhaseCompleted:
		return domain.ErrSessionCompleted
	}
	return nil
}

// GoNext validates answers for the current step and, when they pass, stores
// them and moves to the next visible step, completing the session after the last.
//
// The answers map is authoritative for the step: a question of the step with an
// empty or missing answer has its stored value removed. Keys that are not
// questions of the current step are rejected with *domain.UnknownQuestionError.
// Validation failures are returned in Outcome.Violations with a nil error.
func (m *Machine) GoNext(ctx context.Context, answers domain.ResponseMap) (Outcome, error) {
	if err := m.checkNavigable(); err != nil {
		return Outcome{State: m.State()}, err
	}
	step := m.survey.Steps[m.state.CurrentStepIndex]

	for id := range answers {
		if !step.Has(id) {
			return Outcome{State: m.State()}, &domain.UnknownQuestionError{QuestionID: id, StepID: step.ID}
		}
	}

	if violations := ValidateStep(step, answers); len(violations) > 0 {
		m.logger.Debug("step rejected", "survey", m.survey.ID, "step", step.ID, "violations", len(violations))
		if m.hooks.OnValidationFailed != nil {
			m.hooks.OnValidationFailed(ctx, &domain.ValidationEvent{
				EventBase:  m.event(domain.EventValidationFailed),
				StepID:     step.ID,
				Violations: violations,
			})
		}
		return Outcome{State: m.State(), Violations: violations}, nil
	}

	for _, q := range step.Questions {
		value, ok := answers[q.ID]
		if ok && !domain.IsEmptyAnswer(value) {
			value = Normalize(q, value)
		}
		if !ok || domain.IsEmptyAnswer(value) {
			if err := m.store.Delete(q.ID); err != nil {
				return Outcome{State: m.State()}, err
			}
			continue
		}
		if err := m.store.Set(q.ID, value); err != nil {
			return Outcome{State: m.State()}, err
		}
	}

	m.emitStepLeave(ctx, m.state.CurrentStepIndex)

	if next := m.nextVisible(m.state.CurrentStepIndex); next >= 0 {
		m.state.CurrentStepIndex = next
		m.state.History = append(m.state.History, next)
		m.logger.Debug("step advanced", "survey", m.survey.ID, "step", m.survey.Steps[next].ID)
		m.emitStepEnter(ctx, next)
		return Outcome{State: m.State()}, nil
	}

	result := m.complete(ctx)
	return Outcome{State: m.State(), Result: &result}, nil
}

func (m *Machine) complete(ctx context.Context) domain.SubmissionResult {
	m.state.Phase = domain.PhaseCompleted
	m.state.Completed = true

	result := m.assembler.Assemble(m.survey, m.pathResponses())
	m.logger.Info("session completed", "survey", m.survey.ID, "submission", result.ID, "answers", len(result.Responses))

	if !m.submitted {
		m.submitted = true
		if m.onSubmit != nil {
			m.onSubmit(result)
		}
	}
	if m.hooks.OnComplete != nil {
		m.hooks.OnComplete(ctx, &domain.CompletionEvent{
			EventBase: m.event(domain.EventComplete),
			Result:    result,
		})
	}
	return result
}

// GoBack returns to the previously shown step. It is a no-op on the first step.
func (m *Machine) GoBack(ctx context.Context) (domain.NavigationState, error) {
	if err := m.checkNavigable(); err != nil {
		return m.State(), err
	}
	if len(m.state.History) <= 1 {
		return m.State(), nil
	}

	m.emitStepLeave(ctx, m.state.CurrentStepIndex)
	m.state.History = m.state.History[:len(m.state.History)-1]
	m.state.CurrentStepIndex = m.state.History[len(m.state.History)-1]
	m.emitStepEnter(ctx, m.state.CurrentStepIndex)
	return m.State(), nil
}

// Reset clears every answer and returns to the first step. It is allowed from
// any initialized phase, including Completed; the next completion notifies the
// submit handler again.
func (m *Machine) Reset(ctx context.Context) (domain.NavigationState, error) {
	if m.survey == nil {
		return m.State(), domain.ErrNotInitialized
	}

	m.store.Clear()
	m.state = domain.NewNavigationState()
	m.submitted = false

	m.logger.Debug("session reset", "survey", m.survey.ID)
	if m.hooks.OnReset != nil {
		e := m.event(domain.EventReset)
		m.hooks.OnReset(ctx, &e)
	}
	m.emitStepEnter(ctx, 0)
	return m.State(), nil
}

// Snapshot captures the session for persistence.
func (m *Machine) Snapshot(sessionID string) *domain.Snapshot {
	snap := &domain.Snapshot{
		SessionID: sessionID,
		State:     m.State(),
		Responses: m.Responses(),
		UpdatedAt: m.now().UTC(),
	}
	if m.survey != nil {
		snap.SurveyID = m.survey.ID
	}
	return snap
}

// Restore rebinds the machine to a persisted session. Snapshots that break the
// navigation invariants are rejected with *domain.NavigationError and leave
// the machine untouched. Restoring a completed session does not notify onSubmit.
func (m *Machine) Restore(ctx context.Context, survey *domain.Survey, snap *domain.Snapshot, onSubmit domain.SubmitHandler) error {
	if err := checkSurvey(survey); err != nil {
		return err
	}
	if snap == nil {
		return &domain.NavigationError{Reason: "snapshot is nil"}
	}
	if snap.SurveyID != "" && survey.ID != "" && snap.SurveyID != survey.ID {
		return &domain.NavigationError{Reason: fmt.Sprintf("snapshot belongs to survey %q, not %q", snap.SurveyID, survey.ID)}
	}

	store := response.NewStoreFor(survey)
	if err := store.Restore(snap.Responses); err != nil {
		return &domain.NavigationError{Reason: fmt.Sprintf("snapshot responses: %v", err)}
	}

	state := snap.State.Clone()
	if err := checkState(survey, state); err != nil {
		return err
	}

	prev := *m
	m.survey = survey
	m.store = store
	m.state = state
	m.onSubmit = onSubmit
	m.submitted = state.Completed

	if !state.Completed && !m.isVisible(state.CurrentStepIndex) {
		*m = prev
		return &domain.NavigationError{Reason: fmt.Sprintf("current step %d is hidden by its condition", state.CurrentStepIndex)}
	}

	m.logger.Debug("session restored", "survey", survey.ID, "session", snap.SessionID, "phase", state.Phase)
	return nil
}

func checkState(survey *domain.Survey, s domain.NavigationState) error {
	invalid := func(format string, args ...any) error {
		return &domain.NavigationError{Reason: fmt.Sprintf(format, args...)}
	}

	switch s.Phase {
	case domain.PhaseReady:
		if s.Completed {
			return invalid("ready state cannot be completed")
		}
	case domain.PhaseCompleted:
		if !s.Completed {
			return invalid("completed phase without completed flag")
		}
		return nil
	default:
		return invalid("cannot restore phase %q", s.Phase)
	}

	if s.CurrentStepIndex < 0 || s.CurrentStepIndex >= len(survey.Steps) {
		return invalid("step index %d out of range [0, %d)", s.CurrentStepIndex, len(survey.Steps))
	}
	if len(s.History) == 0 || s.History[0] != 0 {
		return invalid("history must start at the first step")
	}
	if s.History[len(s.History)-1] != s.CurrentStepIndex {
		return invalid("history does not end at the current step")
	}
	for i := 1; i < len(s.History); i++ {
		if s.History[i] <= s.History[i-1] {
			return invalid("history is not strictly increasing")
		}
	}
	return nil
}

// nextVisible returns the first visible step after from, or -1.
func (m *Machine) nextVisible(from int) int {
	for i := from + 1; i < len(m.survey.Steps); i++ {
		if m.isVisible(i) {
			return i
		}
	}
	return -1
}

func (m *Machine) isVisible(index int) bool {
	return m.survey.Steps[index].When.Evaluate(m.pathResponses())
}

// pathResponses returns the answers of the steps on the navigation history.
// Answers left behind on steps that are no longer on the path (after going back
// and changing a branch) do not influence conditions or the submission.
func (m *Machine) pathResponses() domain.ResponseMap {
	all := m.store.Snapshot()
	out := make(domain.ResponseMap, len(all))
	for _, idx := range m.state.History {
		for _, q := range m.survey.Steps[idx].Questions {
			if v, ok := all[q.ID]; ok {
				out[q.ID] = v
			}
		}
	}
	return out
}

func (m *Machine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: m.now(), Type: t, SurveyID: m.survey.ID}
}

func (m *Machine) emitStepEnter(ctx context.Context, index int) {
	if m.hooks.OnStepEnter == nil {
		return
	}
	m.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: m.event(domain.EventStepEnter),
		StepID:    m.survey.Steps[index].ID,
		StepIndex: index,
	})
}

func (m *Machine) emitStepLeave(ctx context.Context, index int) {
	if m.hooks.OnStepLeave == nil {
		return
	}
	m.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: m.event(domain.EventStepLeave),
		StepID:    m.survey.Steps[index].ID,
		StepIndex: index,
	})
}
