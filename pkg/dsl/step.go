package dsl

import "github.com/aretw0/stepwise/pkg/domain"

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step      domain.Step
	questions []*QuestionBuilder
}

// Title sets the step heading.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// When shows the step only while the condition holds.
func (s *StepBuilder) When(c domain.Condition) *StepBuilder {
	s.step.When = &c
	return s
}

// WhenEquals shows the step only when the question's answer equals value.
func (s *StepBuilder) WhenEquals(question string, value any) *StepBuilder {
	return s.When(domain.Condition{Question: question, Equals: value})
}

// WhenAnswered shows the step only when the question has a non-empty answer.
func (s *StepBuilder) WhenAnswered(question string) *StepBuilder {
	answered := true
	return s.When(domain.Condition{Question: question, Answered: &answered})
}

// Text adds a free text question.
func (s *StepBuilder) Text(id, prompt string) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionText, Prompt: prompt})
}

// SingleChoice adds a question answered with exactly one option.
func (s *StepBuilder) SingleChoice(id, prompt string, options ...string) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionSingleChoice, Prompt: prompt, Options: options})
}

// MultiChoice adds a question answered with any subset of the options.
func (s *StepBuilder) MultiChoice(id, prompt string, options ...string) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionMultiChoice, Prompt: prompt, Options: options})
}

// Likert adds an integer scale question, 1 to 5 unless Min or Max say otherwise.
func (s *StepBuilder) Likert(id, prompt string) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionLikert, Prompt: prompt})
}

// Range adds a numeric question bounded by min and max.
func (s *StepBuilder) Range(id, prompt string, min, max float64) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionRange, Prompt: prompt}).Min(min).Max(max)
}

// Matrix adds a grid question with one single choice among columns per row.
func (s *StepBuilder) Matrix(id, prompt string, rows, columns []string) *QuestionBuilder {
	return s.add(domain.Question{ID: id, Type: domain.QuestionMatrix2D, Prompt: prompt, Rows: rows, Columns: columns})
}

func (s *StepBuilder) add(q domain.Question) *QuestionBuilder {
	qb := &QuestionBuilder{question: q, step: s}
	s.questions = append(s.questions, qb)
	return qb
}

// Build returns the underlying domain.Step.
func (s *StepBuilder) Build() domain.Step {
	step := s.step
	step.Questions = make([]domain.Question, 0, len(s.questions))
	for _, qb := range s.questions {
		step.Questions = append(step.Questions, qb.question)
	}
	return step
}

// QuestionBuilder configures a single question.
type QuestionBuilder struct {
	question domain.Question
	step     *StepBuilder
}

// Required marks the question as mandatory.
func (q *QuestionBuilder) Required() *QuestionBuilder {
	q.question.Rules.Required = true
	return q
}

// Min sets the lower bound (length, value or selection count, by type).
func (q *QuestionBuilder) Min(v float64) *QuestionBuilder {
	q.question.Rules.Min = &v
	return q
}

// Max sets the upper bound (length, value or selection count, by type).
func (q *QuestionBuilder) Max(v float64) *QuestionBuilder {
	q.question.Rules.Max = &v
	return q
}

// Pattern constrains text answers to a regular expression.
func (q *QuestionBuilder) Pattern(expr string) *QuestionBuilder {
	q.question.Rules.Pattern = expr
	return q
}

// Help sets the hint shown next to the prompt.
func (q *QuestionBuilder) Help(text string) *QuestionBuilder {
	q.question.Help = text
	return q
}

// Step returns the step the question belongs to, to keep chaining.
func (q *QuestionBuilder) Step() *StepBuilder {
	return q.step
}
