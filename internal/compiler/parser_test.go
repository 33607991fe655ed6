package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/pkg/domain"
)

const yamlSurvey = `
id: onboarding
title: Onboarding
description: Tell us about yourself
steps:
  - id: about
    questions:
      - id: name
        type: text
        prompt: Your name?
        required: true
        pattern: "^[A-Za-z ]+$"
      - id: age
        type: range
        prompt: Age
        min: 18
        max: 99
  - id: follow-up
    when:
      question: name
      answered: true
    questions:
      - id: mood
        type: likert
        text: How do you feel?
        validation:
          required: true
`

const jsonSurvey = `{
  "title": "JSON Survey",
  "steps": [
    {"questions": [
      {"id": "color", "type": "Single-Choice", "prompt": "Pick", "options": ["red", "blue", 3]},
      {"id": "grid", "type": "matrix2d", "prompt": "Rate", "rows": ["a"], "columns": ["x", "y"]}
    ]}
  ]
}`

func TestParser_YAML(t *testing.T) {
	survey, err := NewParser().Parse([]byte(yamlSurvey))
	require.NoError(t, err)

	assert.Equal(t, "onboarding", survey.ID)
	assert.Equal(t, "Tell us about yourself", survey.Description)
	require.Len(t, survey.Steps, 2)

	name := survey.Steps[0].Questions[0]
	assert.Equal(t, domain.QuestionText, name.Type)
	assert.True(t, name.Rules.Required)
	assert.Equal(t, "^[A-Za-z ]+$", name.Rules.Pattern)

	age := survey.Steps[0].Questions[1]
	require.NotNil(t, age.Rules.Min)
	require.NotNil(t, age.Rules.Max)
	assert.Equal(t, 18.0, *age.Rules.Min)
	assert.Equal(t, 99.0, *age.Rules.Max)

	follow := survey.Steps[1]
	require.NotNil(t, follow.When)
	assert.Equal(t, "name", follow.When.Question)
	require.NotNil(t, follow.When.Answered)
	assert.True(t, *follow.When.Answered)

	mood := follow.Questions[0]
	assert.Equal(t, "How do you feel?", mood.Prompt, "text is accepted as prompt alias")
	assert.True(t, mood.Rules.Required, "nested validation block is merged")
}

func TestParser_JSON(t *testing.T) {
	survey, err := NewParser().Parse([]byte(jsonSurvey))
	require.NoError(t, err)

	require.Len(t, survey.Steps, 1)
	step := survey.Steps[0]
	assert.Equal(t, "step-1", step.ID, "missing step IDs are generated")

	color := step.Questions[0]
	assert.Equal(t, domain.QuestionSingleChoice, color.Type, "type is normalised to lower case")
	assert.Equal(t, []string{"red", "blue", "3"}, color.Options)

	grid := step.Questions[1]
	assert.Equal(t, []string{"a"}, grid.Rows)
	assert.Equal(t, []string{"x", "y"}, grid.Columns)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", "   "},
		{"Malformed", "steps: [unclosed"},
		{"Scalar Document", "just a string"},
		{"Wrong Shape", `{"steps": "not-a-list"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParser_ConditionKeySpellings(t *testing.T) {
	for _, key := range []string{"not_equals", "notEquals", "NotEquals", "not-equals"} {
		t.Run(key, func(t *testing.T) {
			doc := `
steps:
  - questions:
      - {id: color, type: text, prompt: Color?}
  - when: {question: color, ` + key + `: red}
    questions:
      - {id: why, type: text, prompt: Why?}
`
			survey, err := NewParser().Parse([]byte(doc))
			require.NoError(t, err)
			require.NotNil(t, survey.Steps[1].When)
			assert.Equal(t, "red", survey.Steps[1].When.NotEquals)
		})
	}
}
