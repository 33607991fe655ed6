package domain

import "fmt"

// Rule names reported in a Violation.
const (
	RuleRequired   = "required"
	RuleType       = "type"
	RuleOption     = "option"
	RulePattern    = "pattern"
	RuleMin        = "min"
	RuleMax        = "max"
	RuleIncomplete = "incomplete"
)

// Violation reports one question failing one of its rules.
// It is an expected, recoverable outcome and never an error.
type Violation struct {
	QuestionID string `json:"question_id"`
	Rule       string `json:"rule"`
	Message    string `json:"message,omitempty"`
}

func (v Violation) String() string {
	if v.Message == "" {
		return fmt.Sprintf("%s: %s", v.QuestionID, v.Rule)
	}
	return fmt.Sprintf("%s: %s (%s)", v.QuestionID, v.Rule, v.Message)
}
