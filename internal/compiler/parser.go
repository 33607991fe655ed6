package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Parser is responsible for converting raw definition bytes into a Survey.
// YAML and JSON documents are both accepted (JSON is parsed as YAML flow syntax).
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

type surveyDocument struct {
	ID          string         `mapstructure:"id"`
	Title       string         `mapstructure:"title"`
	Description string         `mapstructure:"description"`
	Steps       []stepDocument `mapstructure:"steps"`
}

type stepDocument struct {
	ID        string             `mapstructure:"id"`
	Title     string             `mapstructure:"title"`
	When      *conditionDocument `mapstructure:"when"`
	Questions []questionDocument `mapstructure:"questions"`
}

type conditionDocument struct {
	Question  string `mapstructure:"question"`
	Equals    any    `mapstructure:"equals"`
	NotEquals any    `mapstructure:"not_equals"`
	In        []any  `mapstructure:"in"`
	Answered  *bool  `mapstructure:"answered"`
}

type rulesDocument struct {
	Required bool     `mapstructure:"required"`
	Min      *float64 `mapstructure:"min"`
	Max      *float64 `mapstructure:"max"`
	Pattern  string   `mapstructure:"pattern"`
}

type questionDocument struct {
	ID     string `mapstructure:"id"`
	Type   string `mapstructure:"type"`
	Prompt string `mapstructure:"prompt"`
	Text   string `mapstructure:"text"` // legacy alias of prompt
	Help   string `mapstructure:"help"`

	// Rules may be declared inline or under "validation".
	rulesDocument `mapstructure:",squash"`
	Validation    *rulesDocument `mapstructure:"validation"`

	Options []string `mapstructure:"options"`
	Rows    []string `mapstructure:"rows"`
	Columns []string `mapstructure:"columns"`
}

// matchKey lets snake_case tags accept camelCase and kebab-case keys:
// not_equals matches notEquals, NotEquals and not-equals.
func matchKey(mapKey, fieldName string) bool {
	return strings.EqualFold(normalizeKey(mapKey), normalizeKey(fieldName))
}

func normalizeKey(k string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(k)
}

// Parse decodes the raw document. It only checks the document shape; semantic
// checks (unique IDs, rule sanity) are done by the validator package.
func (p *Parser) Parse(data []byte) (*domain.Survey, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty definition")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("definition is not an object")
	}

	var doc surveyDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		MatchName:        matchKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	return doc.toDomain(), nil
}

func (d surveyDocument) toDomain() *domain.Survey {
	survey := &domain.Survey{
		ID:          strings.TrimSpace(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Steps:       make([]domain.Step, 0, len(d.Steps)),
	}
	for i, s := range d.Steps {
		step := domain.Step{
			ID:        strings.TrimSpace(s.ID),
			Title:     s.Title,
			Questions: make([]domain.Question, 0, len(s.Questions)),
		}
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}
		if s.When != nil {
			step.When = &domain.Condition{
				Question:  s.When.Question,
				Equals:    s.When.Equals,
				NotEquals: s.When.NotEquals,
				In:        s.When.In,
				Answered:  s.When.Answered,
			}
		}
		for _, q := range s.Questions {
			step.Questions = append(step.Questions, q.toDomain())
		}
		survey.Steps = append(survey.Steps, step)
	}
	return survey
}

func (q questionDocument) toDomain() domain.Question {
	rules := q.rulesDocument
	if q.Validation != nil {
		rules = mergeRules(rules, *q.Validation)
	}

	prompt := q.Prompt
	if prompt == "" {
		prompt = q.Text
	}

	return domain.Question{
		ID:      strings.TrimSpace(q.ID),
		Type:    domain.QuestionType(strings.ToLower(strings.TrimSpace(q.Type))),
		Prompt:  prompt,
		Help:    q.Help,
		Options: q.Options,
		Rows:    q.Rows,
		Columns: q.Columns,
		Rules: domain.Rules{
			Required: rules.Required,
			Min:      rules.Min,
			Max:      rules.Max,
			Pattern:  rules.Pattern,
		},
	}
}

// mergeRules lets the nested "validation" block override inline rules.
func mergeRules(inline, nested rulesDocument) rulesDocument {
	out := inline
	out.Required = inline.Required || nested.Required
	if nested.Min != nil {
		out.Min = nested.Min
	}
	if nested.Max != nil {
		out.Max = nested.Max
	}
	if nested.Pattern != "" {
		out.Pattern = nested.Pattern
	}
	return out
}
