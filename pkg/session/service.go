package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/submission"
)

// View is what a client sees of a session after an operation.
type View struct {
	SessionID  string                   `json:"session_id"`
	SurveyID   string                   `json:"survey_id"`
	State      domain.NavigationState   `json:"state"`
	Step       *domain.Step             `json:"step,omitempty"`
	Responses  domain.ResponseMap       `json:"responses"`
	Violations []domain.Violation       `json:"violations,omitempty"`
	Result     *domain.SubmissionResult `json:"result,omitempty"`
}

// ChangeListener is notified after a session snapshot changed.
type ChangeListener func(ctx context.Context, sessionID string, diff *domain.SnapshotDiff)

// Service runs the sessions of one survey on top of a Manager.
// It is safe for concurrent use.
type Service struct {
	survey    *domain.Survey
	manager   *Manager
	sink      ports.SubmissionSink
	hooks     domain.LifecycleHooks
	assembler *submission.Assembler
	listeners []ChangeListener
	onSubmit  domain.SubmitHandler
	logger    *slog.Logger
	newID     func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSubmissionSink archives completed submissions.
func WithSubmissionSink(sink ports.SubmissionSink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

// WithHooks registers state machine hooks for every session.
func WithHooks(hooks domain.LifecycleHooks) ServiceOption {
	return func(s *Service) { s.hooks = s.hooks.Merge(hooks) }
}

// WithChangeListener registers a listener for snapshot diffs.
func WithChangeListener(l ChangeListener) ServiceOption {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// WithOnComplete registers a callback invoked once per completed session.
func WithOnComplete(fn domain.SubmitHandler) ServiceOption {
	return func(s *Service) { s.onSubmit = fn }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAssembler replaces the submission assembler.
func WithAssembler(a *submission.Assembler) ServiceOption {
	return func(s *Service) { s.assembler = a }
}

// WithIDGenerator replaces the session ID generator (default: UUIDv4).
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a Service for survey.
func NewService(survey *domain.Survey, manager *Manager, opts ...ServiceOption) *Service {
	s := &Service{
		survey:  survey,
		manager: manager,
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Survey returns the survey served.
func (s *Service) Survey() *domain.Survey { return s.survey }

// Manager returns the underlying session manager.
func (s *Service) Manager() *Manager { return s.manager }

// Start creates a session, or returns the existing one when sessionID is known.
// An empty sessionID gets a generated one.
func (s *Service) Start(ctx context.Context, sessionID string) (*View, error) {
	if sessionID == "" {
		sessionID = s.newID()
	}
	if _, err := s.manager.LoadOrStart(ctx, sessionID, s.survey.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, sessionID)
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, sessionID string) (*View, error) {
	var view *View
	err := s.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, _, err := s.restore(ctx, sessionID)
		if err != nil {
			return err
		}
		view = s.view(sessionID, m)
		return nil
	})
	return view, err
}

// Next submits the answers of the current step.
// Validation failures are reported in View.Violations with a nil error.
func (s *Service) Next(ctx context.Context, sessionID string, answers domain.ResponseMap) (*View, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *runtime.Machine, view func() *View) (*View, error) {
		out, err := m.GoNext(ctx, answers)
		if err != nil {
			return nil, err
		}
		v := view()
		v.Violations = out.Violations
		v.Result = out.Result
		return v, nil
	})
}

// Back returns the session to its previously shown step.
func (s *Service) Back(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *runtime.Machine, view func() *View) (*View, error) {
		if _, err := m.GoBack(ctx); err != nil {
			return nil, err
		}
		return view(), nil
	})
}

// Reset clears the session's answers and returns it to the first step.
func (s *Service) Reset(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *runtime.Machine, view func() *View) (*View, error) {
		if _, err := m.Reset(ctx); err != nil {
			return nil, err
		}
		return view(), nil
	})
}

// Delete removes the session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	var existed bool
	err := s.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, err := s.manager.Store().Load(ctx, sessionID); err != nil {
			return err
		}
		existed = true
		return s.manager.Store().Delete(ctx, sessionID)
	})
	if err == nil && existed {
		s.logger.Debug("session deleted", "session", sessionID)
	}
	return err
}

type mutation func(ctx context.Context, m *runtime.Machine, view func() *View) (*View, error)

// mutate runs fn on the restored session under its lock and saves the result.
// A completed submission is archived after the save. Listeners and the
// completion callback run once the lock is released, and the callback fires
// whenever the completed snapshot was saved, even if archiving failed.
func (s *Service) mutate(ctx context.Context, sessionID string, fn mutation) (*View, error) {
	var view *View
	var diff *domain.SnapshotDiff
	var archiveErr error
	err := s.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, before, err := s.restore(ctx, sessionID)
		if err != nil {
			return err
		}

		view, err = fn(ctx, m, func() *View { return s.view(sessionID, m) })
		if err != nil {
			return err
		}

		after := m.Snapshot(sessionID)
		diff = domain.Diff(before, after)
		if diff == nil {
			return nil
		}
		if err := s.manager.Store().Save(ctx, sessionID, after); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		if view.Result != nil && s.sink != nil {
			if err := s.sink.Record(ctx, *view.Result); err != nil {
				archiveErr = fmt.Errorf("failed to record submission: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if diff != nil {
		for _, l := range s.listeners {
			l(ctx, sessionID, diff)
		}
		if view.Result != nil && s.onSubmit != nil {
			s.onSubmit(*view.Result)
		}
	}
	if archiveErr != nil {
		return nil, archiveErr
	}
	return view, nil
}

func (s *Service) restore(ctx context.Context, sessionID string) (*runtime.Machine, *domain.Snapshot, error) {
	snap, err := s.manager.Store().Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	opts := []runtime.Option{
		runtime.WithLogger(s.logger.With("session", sessionID)),
		runtime.WithLifecycleHooks(s.hooks),
	}
	if s.assembler != nil {
		opts = append(opts, runtime.WithAssembler(s.assembler))
	}
	m := runtime.NewMachine(opts...)
	if err := m.Restore(ctx, s.survey, snap, nil); err != nil {
		return nil, nil, err
	}
	return m, snap, nil
}

func (s *Service) view(sessionID string, m *runtime.Machine) *View {
	v := &View{
		SessionID: sessionID,
		SurveyID:  s.survey.ID,
		State:     m.State(),
		Responses: m.Responses(),
	}
	if step, err := m.CurrentStep(); err == nil {
		v.Step = &step
	}
	return v
}
