package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// Condition is a conditional-display rule evaluated against stored answers.
// Exactly one comparator (Equals, NotEquals, In, Answered) is expected to be set.
type Condition struct {
	Question  string `json:"question" yaml:"question"`
	Equals    any    `json:"equals,omitempty" yaml:"equals,omitempty"`
	NotEquals any    `json:"not_equals,omitempty" yaml:"not_equals,omitempty"`
	In        []any  `json:"in,omitempty" yaml:"in,omitempty"`
	Answered  *bool  `json:"answered,omitempty" yaml:"answered,omitempty"`
}

// Comparators returns how many comparators are set.
func (c Condition) Comparators() int {
	n := 0
	if c.Equals != nil {
		n++
	}
	if c.NotEquals != nil {
		n++
	}
	if c.In != nil {
		n++
	}
	if c.Answered != nil {
		n++
	}
	return n
}

// Evaluate reports whether the condition holds for the given answers.
// A nil condition always holds.
func (c *Condition) Evaluate(answers ResponseMap) bool {
	if c == nil {
		return true
	}
	value, ok := answers[c.Question]
	answered := ok && !IsEmptyAnswer(value)

	switch {
	case c.Answered != nil:
		return answered == *c.Answered
	case c.Equals != nil:
		return answered && matches(value, c.Equals)
	case c.NotEquals != nil:
		return !answered || !matches(value, c.NotEquals)
	case c.In != nil:
		if !answered {
			return false
		}
		for _, candidate := range c.In {
			if matches(value, candidate) {
				return true
			}
		}
		return false
	}
	return true
}

// String renders the condition in a compact human-readable form.
func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	switch {
	case c.Answered != nil:
		if *c.Answered {
			return c.Question + " answered"
		}
		return c.Question + " unanswered"
	case c.Equals != nil:
		return fmt.Sprintf("%s == %v", c.Question, c.Equals)
	case c.NotEquals != nil:
		return fmt.Sprintf("%s != %v", c.Question, c.NotEquals)
	case c.In != nil:
		parts := make([]string, 0, len(c.In))
		for _, v := range c.In {
			parts = append(parts, fmt.Sprint(v))
		}
		return fmt.Sprintf("%s in [%s]", c.Question, strings.Join(parts, ", "))
	}
	return c.Question
}

// matches compares an answer against an expected value.
// Multi-choice answers match when any selection matches.
func matches(answer, expected any) bool {
	if list, ok := answer.([]any); ok {
		for _, item := range list {
			if matches(item, expected) {
				return true
			}
		}
		return false
	}
	if list, ok := answer.([]string); ok {
		for _, item := range list {
			if matches(item, expected) {
				return true
			}
		}
		return false
	}

	if isNumeric(answer) || isNumeric(expected) {
		a, errA := cast.ToFloat64E(answer)
		b, errB := cast.ToFloat64E(expected)
		if errA == nil && errB == nil {
			return a == b
		}
	}
	if as, ok := answer.(string); ok {
		if es, ok := expected.(string); ok {
			return as == es
		}
	}
	if reflect.DeepEqual(answer, expected) {
		return true
	}
	return fmt.Sprint(answer) == fmt.Sprint(expected)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
