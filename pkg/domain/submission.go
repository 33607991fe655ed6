package domain

import "time"

// SubmissionResult is the immutable payload produced when a session completes.
type SubmissionResult struct {
	ID          string      `json:"id"`
	SurveyID    string      `json:"survey_id,omitempty"`
	SurveyTitle string      `json:"survey_title"`
	CompletedAt time.Time   `json:"completed_at"`
	Responses   ResponseMap `json:"responses"`
}

// SubmitHandler receives the result of a completed session.
type SubmitHandler func(SubmissionResult)
