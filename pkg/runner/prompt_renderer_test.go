package runner

import (
	"bytes"
	"context"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepwise/pkg/domain"
)

// scriptedPrompter answers prompts in order and records the defaults offered.
type scriptedPrompter struct {
	replies  []any
	defaults []any
}

func (p *scriptedPrompter) next(def any) (any, error) {
	p.defaults = append(p.defaults, def)
	r := p.replies[0]
	p.replies = p.replies[1:]
	if err, ok := r.(error); ok {
		return nil, err
	}
	return r, nil
}

func (p *scriptedPrompter) Input(ctx context.Context, message, def, help string) (string, error) {
	v, err := p.next(def)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *scriptedPrompter) Select(ctx context.Context, message string, options []string, def, help string) (string, error) {
	v, err := p.next(def)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *scriptedPrompter) MultiSelect(ctx context.Context, message string, options, defs []string, help string) ([]string, error) {
	v, err := p.next(defs)
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

var profile = domain.Step{ID: "profile", Questions: []domain.Question{
	{ID: "name", Type: domain.QuestionText, Prompt: "Name"},
	{ID: "color", Type: domain.QuestionSingleChoice, Prompt: "Color", Options: []string{"red", "blue"}},
	{ID: "tags", Type: domain.QuestionMultiChoice, Prompt: "Tags", Options: []string{"a", "b"}},
	{ID: "mood", Type: domain.QuestionLikert, Prompt: "Mood"},
	{ID: "grid", Type: domain.QuestionMatrix2D, Prompt: "Grid", Rows: []string{"x", "y"}, Columns: []string{"lo", "hi"}},
}}

func newPromptRenderer(p Prompter) (*PromptRenderer, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewPromptRenderer(WithPrompter(p))
	r.out = &out
	return r, &out
}

func TestPromptRenderer_Collect(t *testing.T) {
	p := &scriptedPrompter{replies: []any{"Ann", "blue", []string{"b"}, "4", "hi", "(skip)", MenuContinue}}
	r, out := newPromptRenderer(p)
	ctx := context.Background()

	require.NoError(t, r.RenderStep(ctx, profile, domain.ResponseMap{"name": "Old", "mood": 2.0}))
	assert.Contains(t, out.String(), "profile")

	answers, err := r.CollectAnswers(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseMap{
		"name":  "Ann",
		"color": "blue",
		"tags":  []string{"b"},
		"mood":  "4",
		"grid":  map[string]any{"x": "hi"},
	}, answers)
	assert.Equal(t, "Old", p.defaults[0])
	assert.Equal(t, "2", p.defaults[3])
}

func TestPromptRenderer_Navigation(t *testing.T) {
	tests := []struct {
		name    string
		replies []any
		want    error
	}{
		{"Menu Back", []any{"", "(skip)", []string{}, "(skip)", "(skip)", "(skip)", MenuBack}, ErrBack},
		{"Menu Reset", []any{"", "(skip)", []string{}, "(skip)", "(skip)", "(skip)", MenuReset}, ErrReset},
		{"Menu Quit", []any{"", "(skip)", []string{}, "(skip)", "(skip)", "(skip)", MenuQuit}, ErrQuit},
		{"Typed Back", []any{":back"}, ErrBack},
		{"Interrupt", []any{terminal.InterruptErr}, ErrQuit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newPromptRenderer(&scriptedPrompter{replies: tt.replies})
			_, err := r.CollectAnswers(context.Background(), profile)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPromptRenderer_NoMenu(t *testing.T) {
	p := &scriptedPrompter{replies: []any{"", "(skip)", []string{}, "(skip)", "(skip)", "(skip)"}}
	r, _ := newPromptRenderer(p)
	r.menu = false
	answers, err := r.CollectAnswers(context.Background(), profile)
	require.NoError(t, err)
	assert.Empty(t, answers)
}
