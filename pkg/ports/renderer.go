package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Renderer is the presentation capability consumed by the wizard.
// It keeps navigation logic independent from any particular UI.
type Renderer interface {
	// RenderStep draws the step's inputs pre-filled from answers.
	RenderStep(ctx context.Context, step domain.Step, answers domain.ResponseMap) error

	// CollectAnswers reads the current on-screen values for the step's questions.
	CollectAnswers(ctx context.Context, step domain.Step) (domain.ResponseMap, error)
}

// ViolationReporter is implemented by renderers that can highlight offending fields.
type ViolationReporter interface {
	ReportViolations(ctx context.Context, step domain.Step, violations []domain.Violation) error
}

// CompletionPresenter is implemented by renderers that show a completion screen.
type CompletionPresenter interface {
	PresentCompletion(ctx context.Context, result domain.SubmissionResult) error
}
