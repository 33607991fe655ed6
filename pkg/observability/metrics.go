package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Metrics holds the wizard collectors.
type Metrics struct {
	StepVisits         *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Violations         *prometheus.CounterVec
	Completions        *prometheus.CounterVec
	Resets             *prometheus.CounterVec
	AnswersPerSubmit   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg registers nothing, which keeps tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepwise_step_visits_total",
			Help: "Total number of times a step was shown.",
		}, []string{"survey", "step"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepwise_validation_failures_total",
			Help: "Total number of rejected step submissions.",
		}, []string{"survey", "step"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepwise_violations_total",
			Help: "Total number of rule violations by rule.",
		}, []string{"survey", "rule"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepwise_completions_total",
			Help: "Total number of completed sessions.",
		}, []string{"survey"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepwise_resets_total",
			Help: "Total number of session resets.",
		}, []string{"survey"}),
		AnswersPerSubmit: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stepwise_submission_answers",
			Help:    "Number of answers in completed submissions.",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}, []string{"survey"}),
	}
	if reg != nil {
		reg.MustRegister(m.StepVisits, m.ValidationFailures, m.Violations, m.Completions, m.Resets, m.AnswersPerSubmit)
	}
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.StepVisits.WithLabelValues(e.SurveyID, e.StepID).Inc()
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			m.ValidationFailures.WithLabelValues(e.SurveyID, e.StepID).Inc()
			for _, v := range e.Violations {
				m.Violations.WithLabelValues(e.SurveyID, v.Rule).Inc()
			}
		},
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			m.Completions.WithLabelValues(e.SurveyID).Inc()
			m.AnswersPerSubmit.WithLabelValues(e.SurveyID).Observe(float64(len(e.Result.Responses)))
		},
		OnReset: func(ctx context.Context, e *domain.EventBase) {
			m.Resets.WithLabelValues(e.SurveyID).Inc()
		},
	}
}
