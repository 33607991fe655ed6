package domain

// QuestionType defines the kind of answer a question expects.
type QuestionType string

const (
	QuestionText         QuestionType = "text"
	QuestionSingleChoice QuestionType = "single-choice"
	QuestionMultiChoice  QuestionType = "multi-choice"
	QuestionLikert       QuestionType = "likert"
	QuestionRange        QuestionType = "range"
	QuestionMatrix2D     QuestionType = "matrix2d"
)

// Default bounds applied to likert questions that do not declare their own.
const (
	DefaultLikertMin = 1
	DefaultLikertMax = 5
)

// Known reports whether t is one of the supported question types.
func (t QuestionType) Known() bool {
	switch t {
	case QuestionText, QuestionSingleChoice, QuestionMultiChoice,
		QuestionLikert, QuestionRange, QuestionMatrix2D:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from Question.Options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultiChoice
}

// Survey is the immutable, fully validated survey definition.
type Survey struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step is one screen of questions shown together.
type Step struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`

	// When hides the step unless it evaluates to true against the stored answers.
	When *Condition `json:"when,omitempty" yaml:"when,omitempty"`
}

// Question is a single answerable prompt.
type Question struct {
	ID      string       `json:"id" yaml:"id"`
	Type    QuestionType `json:"type" yaml:"type"`
	Prompt  string       `json:"prompt" yaml:"prompt"`
	Help    string       `json:"help,omitempty" yaml:"help,omitempty"`
	Rules   Rules        `json:"rules,omitempty" yaml:"rules,omitempty"`
	Options []string     `json:"options,omitempty" yaml:"options,omitempty"`

	// Matrix configuration (Type == matrix2d)
	Rows    []string `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Rules holds the validation constraints of a question.
// Min and Max bound the rune length for text, the value for likert and range,
// and the number of selections for multi-choice.
type Rules struct {
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Min      *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern  string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Bounds returns the effective [min, max] of the question, applying likert defaults.
// A nil pointer means the side is unbounded.
func (q Question) Bounds() (min, max *float64) {
	min, max = q.Rules.Min, q.Rules.Max
	if q.Type == QuestionLikert {
		if min == nil {
			v := float64(DefaultLikertMin)
			min = &v
		}
		if max == nil {
			v := float64(DefaultLikertMax)
			max = &v
		}
	}
	return min, max
}

// HasOption reports whether value is one of the question options.
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}

// StepCount returns the number of steps.
func (s *Survey) StepCount() int {
	if s == nil {
		return 0
	}
	return len(s.Steps)
}

// Question finds a question by ID anywhere in the survey.
func (s *Survey) Question(id string) (Question, bool) {
	for _, step := range s.Steps {
		for _, q := range step.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}

// StepIndexOf returns the index of the step declaring the question, or -1.
func (s *Survey) StepIndexOf(questionID string) int {
	for i, step := range s.Steps {
		if step.Has(questionID) {
			return i
		}
	}
	return -1
}

// QuestionIDs lists every question ID in declaration order.
func (s *Survey) QuestionIDs() []string {
	var ids []string
	for _, step := range s.Steps {
		for _, q := range step.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// Has reports whether the step declares the question.
func (s Step) Has(questionID string) bool {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
