package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Problems walks the survey and collects every structural problem found.
// An empty result means the survey can be handed to the state machine.
func Problems(s *domain.Survey) []string {
	if s == nil {
		return []string{"survey is nil"}
	}

	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(s.Steps) == 0 {
		report("survey must declare at least one step")
	}

	stepIDs := make(map[string]int)
	// questionStep records the step index declaring each question.
	questionStep := make(map[string]int)

	for i, step := range s.Steps {
		if prev, dup := stepIDs[step.ID]; dup {
			report("duplicate step id %q (steps %d and %d)", step.ID, prev+1, i+1)
		} else {
			stepIDs[step.ID] = i
		}

		if len(step.Questions) == 0 {
			report("step %q has no questions", step.ID)
		}

		for _, q := range step.Questions {
			if q.ID == "" {
				report("step %q: question without id", step.ID)
				continue
			}
			if prev, dup := questionStep[q.ID]; dup {
				report("duplicate question id %q (steps %q and %q)", q.ID, s.Steps[prev].ID, step.ID)
				continue
			}
			questionStep[q.ID] = i
			problems = append(problems, questionProblems(q)...)
		}
	}

	for i, step := range s.Steps {
		if step.When == nil {
			continue
		}
		if i == 0 {
			report("step %q: the first step cannot be conditional", step.ID)
			continue
		}
		problems = append(problems, conditionProblems(step, i, questionStep)...)
	}

	return problems
}

// ValidateSurvey returns an error listing every problem, or nil.
func ValidateSurvey(s *domain.Survey) error {
	problems := Problems(s)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
}

func questionProblems(q domain.Question) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("question %q: "+format, append([]any{q.ID}, args...)...))
	}

	if !q.Type.Known() {
		report("unknown type %q", q.Type)
		return problems
	}

	if q.Type.IsChoice() && len(q.Options) == 0 {
		report("%s requires options", q.Type)
	}
	if q.Type.IsChoice() {
		seen := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if seen[o] {
				report("duplicate option %q", o)
			}
			seen[o] = true
		}
	}
	if q.Type == domain.QuestionMatrix2D {
		if len(q.Rows) == 0 {
			report("matrix2d requires rows")
		}
		if len(q.Columns) == 0 {
			report("matrix2d requires columns")
		}
	}

	min, max := q.Bounds()
	if min != nil && max != nil && *min > *max {
		report("min %v is greater than max %v", *min, *max)
	}
	if q.Type == domain.QuestionText || q.Type == domain.QuestionMultiChoice {
		if (min != nil && *min < 0) || (max != nil && *max < 0) {
			report("length bounds cannot be negative")
		}
	}

	if q.Rules.Pattern != "" {
		if q.Type != domain.QuestionText {
			report("pattern only applies to text questions")
		} else if _, err := regexp.Compile(q.Rules.Pattern); err != nil {
			report("invalid pattern: %v", err)
		}
	}

	return problems
}

func conditionProblems(step domain.Step, index int, questionStep map[string]int) []string {
	c := step.When
	var problems []string

	if c.Question == "" {
		return append(problems, fmt.Sprintf("step %q: condition without question", step.ID))
	}

	declared, ok := questionStep[c.Question]
	switch {
	case !ok:
		problems = append(problems, fmt.Sprintf("step %q: condition references unknown question %q", step.ID, c.Question))
	case declared >= index:
		problems = append(problems, fmt.Sprintf("step %q: condition references question %q which is not asked before it", step.ID, c.Question))
	}

	if n := c.Comparators(); n != 1 {
		problems = append(problems, fmt.Sprintf("step %q: condition must set exactly one comparator, got %d", step.ID, n))
	}
	return problems
}
