// Package submission builds the final payload of a completed wizard session.
package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Assembler turns survey metadata and answers into a SubmissionResult.
// Given its clock and ID generator it is a pure function of its inputs.
type Assembler struct {
	Now   func() time.Time
	NewID func() string
}

// NewAssembler returns an Assembler using the wall clock (UTC) and random UUIDs.
func NewAssembler() *Assembler {
	return &Assembler{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// Assemble builds the result. The responses are deep-copied so later
// mutation of the session cannot leak into the payload.
// It panics when survey is nil.
func (a *Assembler) Assemble(survey *domain.Survey, responses domain.ResponseMap) domain.SubmissionResult {
	if survey == nil {
		panic("submission: Assemble called with nil survey")
	}

	now, newID := time.Now, uuid.NewString
	if a != nil && a.Now != nil {
		now = a.Now
	}
	if a != nil && a.NewID != nil {
		newID = a.NewID
	}

	return domain.SubmissionResult{
		ID:          newID(),
		SurveyID:    survey.ID,
		SurveyTitle: survey.Title,
		CompletedAt: now(),
		Responses:   responses.Clone(),
	}
}
