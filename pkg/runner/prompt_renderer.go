package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Prompter abstracts the interactive prompt library so PromptRenderer can be
// tested without a real terminal.
type Prompter interface {
	Input(ctx context.Context, message, def, help string) (string, error)
	Select(ctx context.Context, message string, options []string, def, help string) (string, error)
	MultiSelect(ctx context.Context, message string, options, defs []string, help string) ([]string, error)
}

// Labels of the menu shown after the questions of a step.
const (
	MenuContinue = "Continue"
	MenuBack     = "Back"
	MenuReset    = "Start over"
	MenuQuit     = "Save and quit"
)

// PromptRenderer is a Renderer driving arrow-key prompts on a TTY.
type PromptRenderer struct {
	prompter Prompter
	out      io.Writer
	markdown tui.Markdown
	menu     bool
	prefill  domain.ResponseMap
}

// PromptRendererOption configures a PromptRenderer.
type PromptRendererOption func(*PromptRenderer)

// WithPrompter replaces the terminal prompter.
func WithPrompter(p Prompter) PromptRendererOption {
	return func(r *PromptRenderer) { r.prompter = p }
}

// WithPromptMarkdown configures how headings are rendered.
func WithPromptMarkdown(md tui.Markdown) PromptRendererOption {
	return func(r *PromptRenderer) {
		if md != nil {
			r.markdown = md
		}
	}
}

// WithNavigationMenu toggles the Continue/Back/Start over/Quit menu.
func WithNavigationMenu(enabled bool) PromptRendererOption {
	return func(r *PromptRenderer) { r.menu = enabled }
}

// NewPromptRenderer creates a renderer on the process terminal.
func NewPromptRenderer(opts ...PromptRendererOption) *PromptRenderer {
	r := &PromptRenderer{
		prompter: NewSurveyPrompter(terminal.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}),
		out:      os.Stdout,
		markdown: tui.Plain,
		menu:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderStep prints the step heading and remembers answers for defaults.
func (r *PromptRenderer) RenderStep(ctx context.Context, step domain.Step, answers domain.ResponseMap) error {
	r.prefill = answers.Clone()
	title := step.Title
	if title == "" {
		title = step.ID
	}
	fmt.Fprint(r.out, r.markdown("## "+title))
	return nil
}

// CollectAnswers prompts for each question and then for the next move.
func (r *PromptRenderer) CollectAnswers(ctx context.Context, step domain.Step) (domain.ResponseMap, error) {
	answers := domain.ResponseMap{}
	for _, q := range step.Questions {
		v, err := r.ask(ctx, q)
		if err != nil {
			return nil, translatePromptErr(err)
		}
		if v != nil {
			answers[q.ID] = v
		}
	}
	if !r.menu {
		return answers, nil
	}
	choice, err := r.prompter.Select(ctx, "Next move", []string{MenuContinue, MenuBack, MenuReset, MenuQuit}, MenuContinue, "")
	if err != nil {
		return nil, translatePromptErr(err)
	}
	switch choice {
	case MenuBack:
		return nil, ErrBack
	case MenuReset:
		return nil, ErrReset
	case MenuQuit:
		return nil, ErrQuit
	}
	return answers, nil
}

// ReportViolations prints the broken rules.
func (r *PromptRenderer) ReportViolations(ctx context.Context, step domain.Step, violations []domain.Violation) error {
	for _, v := range violations {
		fmt.Fprintf(r.out, "✗ %s\n", v)
	}
	return nil
}

// PresentCompletion prints the submission ID.
func (r *PromptRenderer) PresentCompletion(ctx context.Context, result domain.SubmissionResult) error {
	fmt.Fprint(r.out, r.markdown(fmt.Sprintf("**Thank you!** Submission `%s` recorded.", result.ID)))
	return nil
}

func (r *PromptRenderer) ask(ctx context.Context, q domain.Question) (any, error) {
	message := q.Prompt + requiredMark(q)
	prefill, hasPrefill := r.prefill[q.ID]

	switch q.Type {
	case domain.QuestionSingleChoice:
		def, _ := prefill.(string)
		return r.selectOne(ctx, message, q.Options, def, q.Help)

	case domain.QuestionMultiChoice:
		defs, _ := prefill.([]string)
		picked, err := r.prompter.MultiSelect(ctx, message, q.Options, defs, q.Help)
		if err != nil || len(picked) == 0 {
			return nil, err
		}
		return picked, nil

	case domain.QuestionLikert:
		lo, hi := q.Bounds()
		var scale []string
		for n := *lo; n <= *hi; n++ {
			scale = append(scale, formatNumber(n))
		}
		def := prefillText(prefill, hasPrefill)
		return r.selectOne(ctx, message, scale, def, q.Help)

	case domain.QuestionMatrix2D:
		prev, _ := prefill.(map[string]string)
		cells := map[string]any{}
		for _, row := range q.Rows {
			v, err := r.selectOne(ctx, message+" · "+row, q.Columns, prev[row], q.Help)
			if err != nil {
				return nil, err
			}
			if v != nil {
				cells[row] = v
			}
		}
		if len(cells) == 0 {
			return nil, nil
		}
		return cells, nil
	}

	line, err := r.prompter.Input(ctx, message, prefillText(prefill, hasPrefill), q.Help)
	if err != nil {
		return nil, err
	}
	if err := commandError(line); err != nil {
		return nil, err
	}
	if line == "" || line == CommandClear {
		return nil, nil
	}
	return line, nil
}

// selectOne offers options plus a "skip" entry for optional answers.
func (r *PromptRenderer) selectOne(ctx context.Context, message string, options []string, def, help string) (any, error) {
	const skip = "(skip)"
	choices := append(append([]string(nil), options...), skip)
	if def == "" {
		def = choices[0]
	}
	picked, err := r.prompter.Select(ctx, message, choices, def, help)
	if err != nil {
		return nil, err
	}
	if picked == skip {
		return nil, nil
	}
	return picked, nil
}

func translatePromptErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrQuit
	}
	return err
}

// SurveyPrompter implements Prompter with AlecAivazis/survey.
type SurveyPrompter struct {
	stdio terminal.Stdio
}

// NewSurveyPrompter creates a prompter bound to stdio.
func NewSurveyPrompter(stdio terminal.Stdio) *SurveyPrompter {
	return &SurveyPrompter{stdio: stdio}
}

func (p *SurveyPrompter) opts() []survey.AskOpt {
	return []survey.AskOpt{survey.WithStdio(p.stdio.In, p.stdio.Out, p.stdio.Err)}
}

func (p *SurveyPrompter) Input(ctx context.Context, message, def, help string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{Message: message, Default: def, Help: help}
	opts := append(p.opts(), survey.WithValidator(func(ans interface{}) error {
		s, _ := ans.(string)
		_, err := SanitizeInput(s)
		return err
	}))
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", err
	}
	clean, err := SanitizeInput(out)
	if err != nil {
		return "", err
	}
	return StripMarkup(clean), nil
}

func (p *SurveyPrompter) Select(ctx context.Context, message string, options []string, def, help string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Select{Message: message, Options: options, Help: help}
	if indexOf(options, def) >= 0 {
		prompt.Default = def
	}
	if err := survey.AskOne(prompt, &out, p.opts()...); err != nil {
		return "", err
	}
	return out, nil
}

func (p *SurveyPrompter) MultiSelect(ctx context.Context, message string, options, defs []string, help string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{Message: message, Options: options, Help: help}
	var valid []string
	for _, d := range defs {
		if indexOf(options, d) >= 0 {
			valid = append(valid, d)
		}
	}
	if len(valid) > 0 {
		prompt.Default = valid
	}
	if err := survey.AskOne(prompt, &out, p.opts()...); err != nil {
		return nil, err
	}
	return out, nil
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

