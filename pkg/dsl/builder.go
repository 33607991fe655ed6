package dsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/stepwise/internal/validator"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Builder manages the survey construction.
type Builder struct {
	id          string
	title       string
	description string
	steps       []*StepBuilder
	index       map[string]*StepBuilder
}

// New creates a new survey builder.
func New(id, title string) *Builder {
	return &Builder{
		id:    id,
		title: title,
		index: make(map[string]*StepBuilder),
	}
}

// Description sets the survey description.
func (b *Builder) Description(text string) *Builder {
	b.description = text
	return b
}

// Step returns the builder of the step with the given ID, appending it
// after the existing steps the first time it is named.
func (b *Builder) Step(id string) *StepBuilder {
	if sb, ok := b.index[id]; ok {
		return sb
	}
	sb := &StepBuilder{step: domain.Step{ID: id}}
	b.steps = append(b.steps, sb)
	b.index[id] = sb
	return sb
}

// Build assembles and validates the survey.
func (b *Builder) Build() (*domain.Survey, error) {
	s := b.survey()
	if problems := validator.Problems(s); len(problems) > 0 {
		return nil, &domain.DefinitionError{Problems: problems}
	}
	return s, nil
}

// YAML renders the survey as a definition document.
func (b *Builder) YAML() ([]byte, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(document(s))
}

// Source builds the survey and serves it from memory under locator.
func (b *Builder) Source(locator string) (*memory.Source, error) {
	data, err := b.YAML()
	if err != nil {
		return nil, fmt.Errorf("failed to build survey %q: %w", b.id, err)
	}
	src := memory.NewSource(nil)
	src.Put(locator, data)
	return src, nil
}

func (b *Builder) survey() *domain.Survey {
	s := &domain.Survey{
		ID:          b.id,
		Title:       b.title,
		Description: b.description,
		Steps:       make([]domain.Step, 0, len(b.steps)),
	}
	for _, sb := range b.steps {
		s.Steps = append(s.Steps, sb.Build())
	}
	return s
}

// document maps the survey onto the definition format, with rules inline.
func document(s *domain.Survey) map[string]any {
	steps := make([]map[string]any, 0, len(s.Steps))
	for _, step := range s.Steps {
		questions := make([]map[string]any, 0, len(step.Questions))
		for _, q := range step.Questions {
			questions = append(questions, questionDocument(q))
		}
		doc := map[string]any{"id": step.ID, "questions": questions}
		if step.Title != "" {
			doc["title"] = step.Title
		}
		if step.When != nil {
			doc["when"] = conditionDocument(*step.When)
		}
		steps = append(steps, doc)
	}

	doc := map[string]any{"id": s.ID, "title": s.Title, "steps": steps}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	return doc
}

func questionDocument(q domain.Question) map[string]any {
	doc := map[string]any{"id": q.ID, "type": string(q.Type), "prompt": q.Prompt}
	if q.Help != "" {
		doc["help"] = q.Help
	}
	if q.Rules.Required {
		doc["required"] = true
	}
	if q.Rules.Min != nil {
		doc["min"] = *q.Rules.Min
	}
	if q.Rules.Max != nil {
		doc["max"] = *q.Rules.Max
	}
	if q.Rules.Pattern != "" {
		doc["pattern"] = q.Rules.Pattern
	}
	if len(q.Options) > 0 {
		doc["options"] = q.Options
	}
	if len(q.Rows) > 0 {
		doc["rows"] = q.Rows
		doc["columns"] = q.Columns
	}
	return doc
}

func conditionDocument(c domain.Condition) map[string]any {
	doc := map[string]any{"question": c.Question}
	switch {
	case c.Answered != nil:
		doc["answered"] = *c.Answered
	case c.Equals != nil:
		doc["equals"] = c.Equals
	case c.NotEquals != nil:
		doc["not_equals"] = c.NotEquals
	case c.In != nil:
		doc["in"] = c.In
	}
	return doc
}
