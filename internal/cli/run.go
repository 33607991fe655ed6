package cli

import (
	"context"
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/loader"
	"github.com/aretw0/stepwise/pkg/observability"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/runner"
)

// RunOptions configures an interactive run.
type RunOptions struct {
	Locator   string
	SessionID string
	// Plain forces the line-oriented renderer even on a terminal.
	Plain bool
	Fresh bool
}

// RunSurvey runs one survey session in the terminal. Progress is kept in the
// configured store so an interrupted run resumes where it stopped.
func RunSurvey(ctx context.Context, app *App, opts RunOptions) error {
	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = "local-" + loader.IDFromLocator(opts.Locator)
	}
	if opts.Fresh {
		if err := backend.Store.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
	}

	interactive := !opts.Plain && isTerminal(os.Stdin) && isTerminal(os.Stdout)
	renderer := newRenderer(app, interactive)

	w := stepwise.New(opts.Locator,
		stepwise.WithRenderer(renderer),
		stepwise.WithLogger(app.Logger),
		stepwise.WithHooks(observability.LoggingHooks(app.Logger)),
		stepwise.WithStateStore(backend.Store, sessionID),
		stepwise.WithSubmissionSink(backend.Sink),
	)

	if interactive {
		tui.PrintBanner(app.Out, "")
	}
	app.printSystemMessage("Session '%s' (%s store). Type %s, %s or %s at any prompt.",
		sessionID, backend.Name, runner.CommandBack, runner.CommandReset, runner.CommandQuit)

	err = runner.New(w, runner.WithOutput(app.Out), runner.WithLogger(app.Logger)).Run(ctx)
	switch {
	case errors.Is(err, runner.ErrQuit):
		app.printSystemMessage("Progress saved. Resume with the same command.")
		return nil
	case errors.Is(err, context.Canceled):
		app.printSystemMessage("Interrupted. Progress saved.")
		return nil
	}
	return err
}

func newRenderer(app *App, interactive bool) ports.Renderer {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	var md tui.Markdown = tui.Plain
	if interactive {
		md = tui.NewMarkdown(width)
	}
	if interactive {
		return runner.NewPromptRenderer(
			runner.WithPrompter(runner.NewSurveyPrompter(terminal.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})),
			runner.WithPromptMarkdown(md),
		)
	}
	return runner.NewTextRenderer(app.In, app.Out,
		runner.WithMarkdown(md),
		runner.WithMaxInput(app.Config.MaxInputSize),
	)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
