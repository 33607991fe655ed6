/*
Package runner drives a stepwise.Wizard from a terminal.

It provides two renderers and the loop that ties them to the wizard:

  - TextRenderer: line oriented, works on pipes and dumb terminals.
  - PromptRenderer: arrow-key prompts for interactive TTYs.
  - Runner: shows the wizard, submits steps and turns the :back, :reset and
    :quit commands into navigation.

# Usage

	renderer := runner.NewTextRenderer(os.Stdin, os.Stdout)
	w := stepwise.New("survey.yaml", stepwise.WithRenderer(renderer))
	r := runner.New(w, runner.WithOutput(os.Stdout))
	if err := r.Run(ctx); err != nil && !errors.Is(err, runner.ErrQuit) {
		log.Fatal(err)
	}

Every user-supplied string goes through SanitizeInput before it reaches the
state machine.
*/
package runner
