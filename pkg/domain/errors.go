package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionCompleted is returned when navigating a session that already completed.
var ErrSessionCompleted = errors.New("session already completed")

// ErrNotInitialized is returned when the navigation API is used before Init.
var ErrNotInitialized = errors.New("navigation not initialized")

// ErrLoadSuperseded is returned when an in-flight definition load was discarded
// because a reset or a newer start happened meanwhile.
var ErrLoadSuperseded = errors.New("definition load superseded")

// DefinitionError reports a survey definition that could not be used.
// It is fatal to initialization.
type DefinitionError struct {
	Locator  string
	Problems []string
	Err      error
}

func (e *DefinitionError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid survey definition")
	if e.Locator != "" {
		fmt.Fprintf(&sb, " %q", e.Locator)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if len(e.Problems) == 1 {
		fmt.Fprintf(&sb, ": %s", e.Problems[0])
	} else if len(e.Problems) > 1 {
		fmt.Fprintf(&sb, ": %d problems:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
	}
	return sb.String()
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// UnknownQuestionError signals an answer keyed by a question the survey (or the
// current step) does not declare. It indicates a renderer/definition mismatch.
type UnknownQuestionError struct {
	QuestionID string
	StepID     string
}

func (e *UnknownQuestionError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("unknown question %q for step %q", e.QuestionID, e.StepID)
	}
	return fmt.Sprintf("unknown question %q", e.QuestionID)
}

// NavigationError reports a survey structure or persisted state the state machine
// cannot operate on. It is fatal at init and restore.
type NavigationError struct {
	Reason string
}

func (e *NavigationError) Error() string {
	return "navigation error: " + e.Reason
}
