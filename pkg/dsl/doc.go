/*
Package dsl provides a fluent Go builder for Stepwise surveys.

It lets programs define surveys without YAML or JSON files, which is handy for
generated surveys and for tests. The built survey goes through the same
validation as a loaded definition.

Example usage:

	b := dsl.New("onboarding", "Welcome aboard")

	b.Step("about").Title("About you")
	b.Step("about").Text("name", "What is your name?").Required()
	b.Step("about").SingleChoice("role", "Your role", "dev", "ops", "other").Required()

	b.Step("stack").
		Title("Your stack").
		WhenEquals("role", "dev").
		MultiChoice("langs", "Languages you use", "go", "rust", "python").Max(2)

	src, err := b.Source("mem://onboarding")
	// ...
	w := stepwise.New("mem://onboarding", stepwise.WithSource(src), stepwise.WithRenderer(r))
*/
package dsl
