package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/stepwise/pkg/domain"
)

func fp(v float64) *float64 { return &v }

func TestValidateAnswer(t *testing.T) {
	text := domain.Question{ID: "t", Type: domain.QuestionText, Rules: domain.Rules{Min: fp(2), Max: fp(5), Pattern: `^[a-zé]+$`}}
	single := domain.Question{ID: "s", Type: domain.QuestionSingleChoice, Options: []string{"a", "b", "3"}}
	multi := domain.Question{ID: "m", Type: domain.QuestionMultiChoice, Options: []string{"a", "b", "c"}, Rules: domain.Rules{Max: fp(2)}}
	likert := domain.Question{ID: "l", Type: domain.QuestionLikert}
	rng := domain.Question{ID: "r", Type: domain.QuestionRange, Rules: domain.Rules{Min: fp(0), Max: fp(1)}}
	matrix := domain.Question{ID: "x", Type: domain.QuestionMatrix2D, Rows: []string{"r1", "r2"}, Columns: []string{"c1", "c2"}, Rules: domain.Rules{Required: true}}

	tests := []struct {
		name  string
		q     domain.Question
		value any
		rules []string
	}{
		{"Text OK", text, "café", nil},
		{"Text Rune Length", text, "éé", nil},
		{"Text Too Short", text, "a", []string{domain.RuleMin}},
		{"Text Too Long And Bad Pattern", text, "abcdef1", []string{domain.RuleMax, domain.RulePattern}},
		{"Text Wrong Type", text, 42, []string{domain.RuleType}},
		{"Optional Absent", text, nil, nil},
		{"Single OK", single, "b", nil},
		{"Single Numeric Option", single, 3, nil},
		{"Single Not Option", single, "z", []string{domain.RuleOption}},
		{"Single List", single, []any{"a"}, []string{domain.RuleType}},
		{"Multi OK", multi, []any{"a", "c"}, nil},
		{"Multi Strings", multi, []string{"a"}, nil},
		{"Multi Too Many", multi, []string{"a", "b", "c"}, []string{domain.RuleMax}},
		{"Multi Bad Option", multi, []string{"a", "z"}, []string{domain.RuleOption}},
		{"Multi Scalar", multi, "a", []string{domain.RuleType}},
		{"Likert Default Bounds", likert, 5, nil},
		{"Likert Above Default", likert, 6, []string{domain.RuleMax}},
		{"Likert Below Default", likert, "0", []string{domain.RuleMin}},
		{"Likert Fraction", likert, 2.5, []string{domain.RuleType}},
		{"Likert Bool", likert, true, []string{domain.RuleType}},
		{"Range Fraction", rng, 0.5, nil},
		{"Range Not Number", rng, "lots", []string{domain.RuleType}},
		{"Matrix Complete", matrix, map[string]any{"r1": "c1", "r2": "c2"}, nil},
		{"Matrix Incomplete", matrix, map[string]string{"r1": "c1"}, []string{domain.RuleIncomplete}},
		{"Matrix Unknown Cell", matrix, map[string]any{"r1": "c9", "r2": "c1"}, []string{domain.RuleOption}},
		{"Matrix Required Absent", matrix, map[string]any{}, []string{domain.RuleRequired}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, v := range ValidateAnswer(tt.q, tt.value) {
				assert.Equal(t, tt.q.ID, v.QuestionID)
				got = append(got, v.Rule)
			}
			assert.Equal(t, tt.rules, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 4.0, Normalize(domain.Question{Type: domain.QuestionLikert}, "4"))
	assert.Equal(t, "3", Normalize(domain.Question{Type: domain.QuestionSingleChoice}, 3))
	assert.Equal(t, []string{"a", "b"}, Normalize(domain.Question{Type: domain.QuestionMultiChoice}, []any{"a", "b"}))
	assert.Equal(t, map[string]string{"r1": "c1"}, Normalize(domain.Question{Type: domain.QuestionMatrix2D}, map[string]any{"r1": "c1", "r2": nil}))
}
