package runtime

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/aretw0/stepwise/pkg/domain"
)

var patternCache sync.Map // string -> *regexp.Regexp

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}

// ValidateStep checks every question of the step against answers and returns
// all violations in question order. The result depends only on the step and
// the answer values, never on map iteration order.
func ValidateStep(step domain.Step, answers domain.ResponseMap) []domain.Violation {
	var out []domain.Violation
	for _, q := range step.Questions {
		out = append(out, ValidateAnswer(q, answers[q.ID])...)
	}
	return out
}

// ValidateAnswer checks a single value. An absent value only violates "required".
func ValidateAnswer(q domain.Question, value any) []domain.Violation {
	if domain.IsEmptyAnswer(value) {
		if q.Rules.Required {
			return []domain.Violation{{QuestionID: q.ID, Rule: domain.RuleRequired, Message: "an answer is required"}}
		}
		return nil
	}

	switch q.Type {
	case domain.QuestionText:
		return validateText(q, value)
	case domain.QuestionSingleChoice:
		return validateSingleChoice(q, value)
	case domain.QuestionMultiChoice:
		return validateMultiChoice(q, value)
	case domain.QuestionLikert, domain.QuestionRange:
		return validateNumber(q, value)
	case domain.QuestionMatrix2D:
		return validateMatrix(q, value)
	}
	return []domain.Violation{typeViolation(q, "unsupported question type %q", q.Type)}
}

func typeViolation(q domain.Question, format string, args ...any) domain.Violation {
	return domain.Violation{QuestionID: q.ID, Rule: domain.RuleType, Message: fmt.Sprintf(format, args...)}
}

func validateText(q domain.Question, value any) []domain.Violation {
	s, ok := value.(string)
	if !ok {
		return []domain.Violation{typeViolation(q, "expected text, got %T", value)}
	}

	var out []domain.Violation
	n := float64(utf8.RuneCountInString(strings.TrimSpace(s)))
	out = append(out, checkBounds(q, n, "characters")...)

	if q.Rules.Pattern != "" {
		re, err := compilePattern(q.Rules.Pattern)
		switch {
		case err != nil:
			out = append(out, domain.Violation{QuestionID: q.ID, Rule: domain.RulePattern, Message: "pattern cannot be compiled"})
		case !re.MatchString(s):
			out = append(out, domain.Violation{QuestionID: q.ID, Rule: domain.RulePattern, Message: "does not match the expected format"})
		}
	}
	return out
}

func validateSingleChoice(q domain.Question, value any) []domain.Violation {
	s, ok := scalarString(value)
	if !ok {
		return []domain.Violation{typeViolation(q, "expected a single option, got %T", value)}
	}
	if !q.HasOption(s) {
		return []domain.Violation{{QuestionID: q.ID, Rule: domain.RuleOption, Message: fmt.Sprintf("%q is not an option", s)}}
	}
	return nil
}

func validateMultiChoice(q domain.Question, value any) []domain.Violation {
	selected, ok := stringList(value)
	if !ok {
		return []domain.Violation{typeViolation(q, "expected a list of options, got %T", value)}
	}

	var out []domain.Violation
	var invalid []string
	for _, s := range selected {
		if !q.HasOption(s) {
			invalid = append(invalid, s)
		}
	}
	if len(invalid) > 0 {
		out = append(out, domain.Violation{
			QuestionID: q.ID,
			Rule:       domain.RuleOption,
			Message:    fmt.Sprintf("not options: %s", strings.Join(invalid, ", ")),
		})
	}
	return append(out, checkBounds(q, float64(len(selected)), "selections")...)
}

func validateNumber(q domain.Question, value any) []domain.Violation {
	n, ok := number(value)
	if !ok {
		return []domain.Violation{typeViolation(q, "expected a number, got %v", value)}
	}
	if q.Type == domain.QuestionLikert && n != math.Trunc(n) {
		return []domain.Violation{typeViolation(q, "likert answers are whole numbers, got %v", n)}
	}
	return checkBounds(q, n, "")
}

func validateMatrix(q domain.Question, value any) []domain.Violation {
	cells, ok := stringMap(value)
	if !ok {
		return []domain.Violation{typeViolation(q, "expected a row to column map, got %T", value)}
	}

	var out []domain.Violation
	var bad []string
	for _, row := range sortedKeys(cells) {
		if !contains(q.Rows, row) {
			bad = append(bad, "row "+row)
			continue
		}
		if col := cells[row]; col != "" && !contains(q.Columns, col) {
			bad = append(bad, fmt.Sprintf("column %s for row %s", col, row))
		}
	}
	if len(bad) > 0 {
		out = append(out, domain.Violation{QuestionID: q.ID, Rule: domain.RuleOption, Message: "unknown " + strings.Join(bad, ", ")})
	}

	if q.Rules.Required {
		var missing []string
		for _, row := range q.Rows {
			if strings.TrimSpace(cells[row]) == "" {
				missing = append(missing, row)
			}
		}
		if len(missing) > 0 {
			out = append(out, domain.Violation{QuestionID: q.ID, Rule: domain.RuleIncomplete, Message: "unanswered rows: " + strings.Join(missing, ", ")})
		}
	}
	return out
}

func checkBounds(q domain.Question, n float64, unit string) []domain.Violation {
	min, max := q.Bounds()
	suffix := ""
	if unit != "" {
		suffix = " " + unit
	}
	if min != nil && n < *min {
		return []domain.Violation{{QuestionID: q.ID, Rule: domain.RuleMin, Message: fmt.Sprintf("must be at least %v%s", *min, suffix)}}
	}
	if max != nil && n > *max {
		return []domain.Violation{{QuestionID: q.ID, Rule: domain.RuleMax, Message: fmt.Sprintf("must be at most %v%s", *max, suffix)}}
	}
	return nil
}

// Normalize converts a validated answer to its canonical stored shape:
// string, []string, float64 or map[string]string.
func Normalize(q domain.Question, value any) any {
	switch q.Type {
	case domain.QuestionText:
		return value
	case domain.QuestionSingleChoice:
		if s, ok := scalarString(value); ok {
			return s
		}
	case domain.QuestionMultiChoice:
		if l, ok := stringList(value); ok {
			return l
		}
	case domain.QuestionLikert, domain.QuestionRange:
		if n, ok := number(value); ok {
			return n
		}
	case domain.QuestionMatrix2D:
		if m, ok := stringMap(value); ok {
			for k, v := range m {
				if v == "" {
					delete(m, k)
				}
			}
			return m
		}
	}
	return value
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		return 0, false
	case string:
		value = strings.TrimSpace(v)
	}
	n, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func scalarString(value any) (string, bool) {
	switch value.(type) {
	case []any, []string, map[string]any, map[string]string, bool:
		return "", false
	}
	s, err := cast.ToStringE(value)
	return s, err == nil
}

func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := scalarString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func stringMap(value any) (map[string]string, bool) {
	switch v := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = item
		}
		return out, true
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if item == nil {
				out[k] = ""
				continue
			}
			s, ok := scalarString(item)
			if !ok {
				return nil, false
			}
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
