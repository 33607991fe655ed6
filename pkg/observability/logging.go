package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepwise/pkg/domain"
)

// LoggingHooks returns hooks writing one structured record per lifecycle event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter", "survey", e.SurveyID, "step", e.StepID, "index", e.StepIndex)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave", "survey", e.SurveyID, "step", e.StepID)
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			rules := make([]string, 0, len(e.Violations))
			for _, v := range e.Violations {
				rules = append(rules, v.QuestionID+":"+v.Rule)
			}
			logger.InfoContext(ctx, "validation_failed", "survey", e.SurveyID, "step", e.StepID, "violations", rules)
		},
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.InfoContext(ctx, "complete", "survey", e.SurveyID, "submission", e.Result.ID, "answers", len(e.Result.Responses))
		},
		OnReset: func(ctx context.Context, e *domain.EventBase) {
			logger.InfoContext(ctx, "reset", "survey", e.SurveyID)
		},
	}
}
