package stepwise_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/dsl"
)

// ExampleNew_headless builds a survey in Go and drives it without a renderer,
// the way a server or a test would.
func ExampleNew_headless() {
	// 1. Define the survey
	b := dsl.New("demo", "Demo")
	b.Step("about").
		Text("name", "Your name").Required().
		Step().
		SingleChoice("role", "Your role", "dev", "ops")
	b.Step("stack").
		WhenEquals("role", "dev").
		MultiChoice("langs", "Languages", "go", "rust")

	src, err := b.Source("mem://demo")
	if err != nil {
		log.Fatal(err)
	}

	// 2. Start a session
	ctx := context.Background()
	w := stepwise.New("mem://demo", stepwise.WithSource(src))
	if err := w.Start(ctx); err != nil {
		log.Fatal(err)
	}

	// 3. An invalid step is rejected with violations
	out, err := w.Submit(ctx, domain.ResponseMap{})
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range out.Violations {
		fmt.Println(v)
	}

	// 4. "ops" hides the stack step, so this completes the survey
	out, err = w.Submit(ctx, domain.ResponseMap{"name": "Ann", "role": "ops"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("completed:", out.State.Completed)
	fmt.Println(out.Result.Responses["name"], out.Result.Responses["role"])

	// Output:
	// name: required (an answer is required)
	// completed: true
	// Ann ops
}
