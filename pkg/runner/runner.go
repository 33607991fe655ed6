package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Runner handles the interactive loop of a Wizard.
type Runner struct {
	wizard *stepwise.Wizard
	out    io.Writer
	logger *slog.Logger
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithOutput sets where status messages go.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner for w. The wizard must have a renderer.
func New(w *stepwise.Wizard, opts ...Option) *Runner {
	r := &Runner{
		wizard: w,
		out:    os.Stdout,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the wizard and loops until the session completes.
// It returns ErrQuit when the user quits or input ends, and ctx.Err() when
// the context is cancelled. Progress is persisted by the wizard as it goes.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.wizard.Start(ctx); err != nil {
		return err
	}
	if err := r.wizard.Show(ctx); err != nil {
		return err
	}
	defer r.wizard.Hide()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := r.wizard.Next(ctx)
		switch {
		case err == nil:
			if out.State.Completed {
				r.logger.Debug("runner finished", "steps", len(out.State.History))
				return nil
			}
			continue
		case errors.Is(err, ErrBack):
			if _, err := r.wizard.Back(ctx); err != nil {
				return err
			}
		case errors.Is(err, ErrReset):
			if _, err := r.wizard.Reset(ctx); err != nil {
				return err
			}
		case errors.Is(err, ErrQuit), errors.Is(err, io.EOF):
			fmt.Fprintln(r.out, "Bye.")
			return ErrQuit
		case errors.Is(err, domain.ErrSessionCompleted):
			fmt.Fprintln(r.out, "This survey was already completed.")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return err
		}
	}
}
