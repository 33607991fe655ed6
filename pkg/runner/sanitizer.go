package runner

import (
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/aretw0/stepwise/pkg/domain"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "STEPWISE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

var strict = bluemonday.StrictPolicy()

// SanitizeInput cleans user input by enforcing the configured size limit,
// validating UTF-8, and stripping dangerous control characters.
func SanitizeInput(input string) (string, error) {
	return SanitizeInputLimit(input, MaxInputSize())
}

// SanitizeInputLimit is SanitizeInput with an explicit size limit in bytes.
func SanitizeInputLimit(input string, limit int) (string, error) {
	// Reject rather than truncate so the stored answer is deterministic.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return are kept. ESC, NULL, BEL and the
	// other control characters are removed.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxInputSize returns the input size limit, honouring EnvMaxInputSize.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}

// StripMarkup removes every HTML element from s, keeping the text content.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// SanitizeAnswers applies SanitizeInputLimit and StripMarkup to every string
// inside answers, including list items and matrix cells. Non-string values
// are passed through for the validator to judge.
func SanitizeAnswers(answers domain.ResponseMap, limit int) (domain.ResponseMap, error) {
	out := make(domain.ResponseMap, len(answers))
	for id, v := range answers {
		clean, err := sanitizeValue(v, limit)
		if err != nil {
			return nil, fmt.Errorf("answer %s: %w", id, err)
		}
		out[id] = clean
	}
	return out, nil
}

func sanitizeValue(v any, limit int) (any, error) {
	switch val := v.(type) {
	case string:
		s, err := SanitizeInputLimit(val, limit)
		if err != nil {
			return nil, err
		}
		return StripMarkup(s), nil
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			s, err := sanitizeValue(item, limit)
			if err != nil {
				return nil, err
			}
			out[i] = s.(string)
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			s, err := sanitizeValue(item, limit)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			s, err := sanitizeValue(item, limit)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			s, err := sanitizeValue(item, limit)
			if err != nil {
				return nil, err
			}
			out[k] = s.(string)
		}
		return out, nil
	}
	return v, nil
}
