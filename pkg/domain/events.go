package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter        EventType = "step_enter"
	EventStepLeave        EventType = "step_leave"
	EventValidationFailed EventType = "validation_failed"
	EventComplete         EventType = "complete"
	EventReset            EventType = "reset"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SurveyID  string    `json:"survey_id,omitempty"`
}

// StepEvent represents entry to or exit from a step.
type StepEvent struct {
	EventBase
	StepID    string `json:"step_id"`
	StepIndex int    `json:"step_index"`
}

// ValidationEvent reports a rejected advance.
type ValidationEvent struct {
	EventBase
	StepID     string      `json:"step_id"`
	Violations []Violation `json:"violations"`
}

// CompletionEvent reports a completed session.
type CompletionEvent struct {
	EventBase
	Result SubmissionResult `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter        func(context.Context, *StepEvent)
	OnStepLeave        func(context.Context, *StepEvent)
	OnValidationFailed func(context.Context, *ValidationEvent)
	OnComplete         func(context.Context, *CompletionEvent)
	OnReset            func(context.Context, *EventBase)
}

// Merge returns hooks that call h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:        chain(h.OnStepEnter, other.OnStepEnter),
		OnStepLeave:        chain(h.OnStepLeave, other.OnStepLeave),
		OnValidationFailed: chain(h.OnValidationFailed, other.OnValidationFailed),
		OnComplete:         chain(h.OnComplete, other.OnComplete),
		OnReset:            chain(h.OnReset, other.OnReset),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e T) {
		a(ctx, e)
		b(ctx, e)
	}
}
