// Package loader resolves a survey locator into a validated, immutable Survey.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"

	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/validator"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Loader fetches, parses and validates survey definitions.
type Loader struct {
	source ports.DefinitionSource
	parser *compiler.Parser
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report loads.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader reading definitions from source.
// A nil source defaults to NewMultiSource().
func New(source ports.DefinitionSource, opts ...Option) *Loader {
	if source == nil {
		source = NewMultiSource()
	}
	l := &Loader{
		source: source,
		parser: compiler.NewParser(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves the locator to a Survey. Every failure, whether the source
// is unreachable, the document malformed or the survey invalid, is reported
// as a *domain.DefinitionError.
func (l *Loader) Load(ctx context.Context, locator string) (*domain.Survey, error) {
	data, err := l.source.Fetch(ctx, locator)
	if err != nil {
		l.logger.Warn("definition fetch failed", "locator", locator, "err", err)
		return nil, &domain.DefinitionError{Locator: locator, Err: err}
	}

	survey, err := l.Parse(data)
	if err != nil {
		var defErr *domain.DefinitionError
		if errors.As(err, &defErr) {
			defErr.Locator = locator
		}
		l.logger.Warn("definition rejected", "locator", locator, "err", err)
		return nil, err
	}

	if survey.ID == "" {
		survey.ID = IDFromLocator(locator)
	}

	l.logger.Debug("definition loaded", "locator", locator, "survey", survey.ID, "steps", len(survey.Steps))
	return survey, nil
}

// Parse decodes and validates raw definition bytes.
func (l *Loader) Parse(data []byte) (*domain.Survey, error) {
	survey, err := l.parser.Parse(data)
	if err != nil {
		return nil, &domain.DefinitionError{Err: err}
	}
	if problems := validator.Problems(survey); len(problems) > 0 {
		return nil, &domain.DefinitionError{Problems: problems}
	}
	return survey, nil
}

// IDFromLocator derives a survey ID from the last path element of the locator,
// without its extension.
func IDFromLocator(locator string) string {
	trimmed := locator
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	base := path.Base(strings.TrimRight(trimmed, "/"))
	if base == "." || base == "/" || base == "" {
		return "survey"
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
