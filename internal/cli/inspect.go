package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/loader"
)

// ValidateSurvey loads the definition and prints a short summary. Problems
// come back as a *domain.DefinitionError listing each of them.
func ValidateSurvey(ctx context.Context, app *App, locator string) error {
	survey, err := loader.New(nil, loader.WithLogger(app.Logger)).Load(ctx, locator)
	if err != nil {
		return err
	}
	questions := 0
	conditional := 0
	for _, step := range survey.Steps {
		questions += len(step.Questions)
		if step.When != nil {
			conditional++
		}
	}
	fmt.Fprintf(app.Out, "Survey %q is valid: %d step(s), %d conditional, %d question(s).\n",
		survey.ID, len(survey.Steps), conditional, questions)
	return nil
}

// PrintGraph writes the Mermaid flowchart of the survey. With a session ID the
// session's path is highlighted.
func PrintGraph(ctx context.Context, app *App, locator, sessionID string) error {
	survey, err := loader.New(nil, loader.WithLogger(app.Logger)).Load(ctx, locator)
	if err != nil {
		return err
	}

	var overlay *graph.Overlay
	if sessionID != "" {
		backend, err := OpenBackend(ctx, app.Config, app.Logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		snap, err := backend.Store.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load session %q: %w", sessionID, err)
		}
		overlay = graph.OverlayFor(survey, snap.State)
	}

	_, err = io.WriteString(app.Out, graph.GenerateMermaid(survey, overlay))
	return err
}

// ListSessions prints the stored session IDs.
func ListSessions(ctx context.Context, app *App) error {
	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	ids, err := backend.Store.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(app.Out, "No active sessions found.")
		return nil
	}
	fmt.Fprintln(app.Out, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(app.Out, "- "+id)
	}
	return nil
}

// InspectSession prints a session snapshot as indented JSON.
func InspectSession(ctx context.Context, app *App, sessionID string) error {
	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	snap, err := backend.Store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %q: %w", sessionID, err)
	}
	return writeJSON(app.Out, snap)
}

// RemoveSessions deletes each session, reporting per ID. Missing sessions are
// reported but do not stop the others from being removed.
func RemoveSessions(ctx context.Context, app *App, ids []string) error {
	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	var errs []error
	for _, id := range ids {
		if err := backend.Store.Delete(ctx, id); err != nil {
			fmt.Fprintf(app.Out, "Error removing '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(app.Out, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}

// ListSubmissions prints the archived submissions of a survey as JSON.
func ListSubmissions(ctx context.Context, app *App, surveyID string) error {
	backend, err := OpenBackend(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	results, err := backend.Sink.Submissions(ctx, surveyID)
	if err != nil {
		return err
	}
	if results == nil {
		results = []domain.SubmissionResult{}
	}
	return writeJSON(app.Out, results)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
