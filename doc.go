/*
Package stepwise is a headless engine for multi-step survey wizards.

A survey is a declarative document (YAML or JSON) made of steps, each holding
questions of one of the supported kinds: text, single-choice, multi-choice,
likert, range and matrix2d. Steps may carry a condition on an earlier answer and
are skipped when it does not hold.

The engine decides which step is shown, keeps the answers between steps, gates
every forward move on validation and assembles the final submission. Drawing
the inputs is delegated to a ports.Renderer so the same survey can run in a
terminal, behind an HTTP API or as MCP tools.

# Usage

	w := stepwise.New("surveys/feedback.yaml",
		stepwise.WithRenderer(myRenderer),
		stepwise.WithOnComplete(func(r domain.SubmissionResult) {
			log.Printf("submission %s: %v", r.ID, r.Responses)
		}),
	)
	if err := w.Start(ctx); err != nil {
		log.Fatal(err)
	}
	_ = w.Show(ctx)

	out, err := w.Next(ctx) // collects answers from the renderer
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range out.Violations {
		log.Println(v)
	}

Hosts without a renderer call Submit with the answers instead of Next.
For many concurrent sessions see pkg/session.
*/
package stepwise
