package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/aretw0/stepwise/internal/presentation/tui"
	"github.com/aretw0/stepwise/pkg/domain"
)

// TextRenderer is a line-oriented Renderer for plain terminals and pipes.
// It asks one question per line and accepts navigation commands in place of
// an answer. An empty line keeps the pre-filled answer; "-" clears it.
type TextRenderer struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Markdown tui.Markdown
	MaxInput int

	prefill domain.ResponseMap

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextRendererOption defines configuration for TextRenderer.
type TextRendererOption func(*TextRenderer)

// WithMarkdown configures how step titles and help text are rendered.
func WithMarkdown(md tui.Markdown) TextRendererOption {
	return func(r *TextRenderer) {
		if md != nil {
			r.Markdown = md
		}
	}
}

// WithMaxInput overrides the per-line input size limit.
func WithMaxInput(limit int) TextRendererOption {
	return func(r *TextRenderer) {
		if limit > 0 {
			r.MaxInput = limit
		}
	}
}

// NewTextRenderer creates a renderer reading r and writing w.
func NewTextRenderer(r io.Reader, w io.Writer, opts ...TextRendererOption) *TextRenderer {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	tr := &TextRenderer{
		Reader:   bufio.NewReader(r),
		Writer:   w,
		Markdown: tui.Plain,
		MaxInput: MaxInputSize(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// RenderStep prints the step heading and remembers answers for pre-filling.
func (r *TextRenderer) RenderStep(ctx context.Context, step domain.Step, answers domain.ResponseMap) error {
	r.prefill = answers.Clone()
	title := step.Title
	if title == "" {
		title = step.ID
	}
	fmt.Fprint(r.Writer, r.Markdown("## "+title))
	return nil
}

// CollectAnswers prompts for every question of the step.
func (r *TextRenderer) CollectAnswers(ctx context.Context, step domain.Step) (domain.ResponseMap, error) {
	answers := domain.ResponseMap{}
	for _, q := range step.Questions {
		v, err := r.ask(ctx, q)
		if err != nil {
			return nil, err
		}
		if v != nil {
			answers[q.ID] = v
		}
	}
	return answers, nil
}

// ReportViolations lists the rules the last submission broke.
func (r *TextRenderer) ReportViolations(ctx context.Context, step domain.Step, violations []domain.Violation) error {
	fmt.Fprintln(r.Writer, "Please fix the following:")
	for _, v := range violations {
		fmt.Fprintf(r.Writer, "  ! %s\n", v)
	}
	return nil
}

// PresentCompletion prints a summary of the submission.
func (r *TextRenderer) PresentCompletion(ctx context.Context, result domain.SubmissionResult) error {
	fmt.Fprintf(r.Writer, "\nThank you! Submission %s recorded with %d answer(s).\n", result.ID, len(result.Responses))
	return nil
}

func (r *TextRenderer) ask(ctx context.Context, q domain.Question) (any, error) {
	fmt.Fprintf(r.Writer, "\n%s%s\n", q.Prompt, requiredMark(q))
	if q.Help != "" {
		fmt.Fprint(r.Writer, r.Markdown(q.Help))
	}

	switch q.Type {
	case domain.QuestionMatrix2D:
		return r.askMatrix(ctx, q)
	case domain.QuestionSingleChoice, domain.QuestionMultiChoice:
		for i, o := range q.Options {
			fmt.Fprintf(r.Writer, "  %d) %s\n", i+1, o)
		}
		if q.Type == domain.QuestionMultiChoice {
			fmt.Fprintln(r.Writer, "  (comma separated)")
		}
	case domain.QuestionLikert, domain.QuestionRange:
		if lo, hi := q.Bounds(); lo != nil && hi != nil {
			fmt.Fprintf(r.Writer, "  (%s to %s)\n", formatNumber(*lo), formatNumber(*hi))
		}
	}

	prefill, hasPrefill := r.prefill[q.ID]
	line, err := r.readLine(ctx, prefillText(prefill, hasPrefill))
	if err != nil {
		return nil, err
	}
	switch line {
	case "":
		if hasPrefill {
			return prefill, nil
		}
		return nil, nil
	case CommandClear:
		return nil, nil
	}

	switch q.Type {
	case domain.QuestionSingleChoice:
		return pickOption(q.Options, line), nil
	case domain.QuestionMultiChoice:
		var picked []string
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				picked = append(picked, pickOption(q.Options, part))
			}
		}
		return picked, nil
	}
	return line, nil
}

func (r *TextRenderer) askMatrix(ctx context.Context, q domain.Question) (any, error) {
	for i, c := range q.Columns {
		fmt.Fprintf(r.Writer, "  %d) %s\n", i+1, c)
	}
	prev, _ := r.prefill[q.ID].(map[string]string)
	cells := map[string]any{}
	for _, row := range q.Rows {
		fmt.Fprintf(r.Writer, "  %s\n", row)
		line, err := r.readLine(ctx, prev[row])
		if err != nil {
			return nil, err
		}
		switch {
		case line == "" && prev[row] != "":
			cells[row] = prev[row]
		case line != "" && line != CommandClear:
			cells[row] = pickOption(q.Columns, line)
		}
	}
	if len(cells) == 0 {
		return nil, nil
	}
	return cells, nil
}

// readLine prompts and returns one sanitized, trimmed line.
// Navigation commands are returned as their errors.
func (r *TextRenderer) readLine(ctx context.Context, def string) (string, error) {
	r.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		if def != "" {
			fmt.Fprintf(r.Writer, "[%s] > ", def)
		} else {
			fmt.Fprint(r.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-r.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInputLimit(strings.TrimSpace(res.text), r.MaxInput)
			if err != nil {
				fmt.Fprintf(r.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if err := commandError(clean); err != nil {
				return "", err
			}
			return StripMarkup(clean), nil
		}
	}
}

func (r *TextRenderer) initPump() {
	r.startOnce.Do(func() {
		r.inputChan = make(chan inputResult)
		go r.pump()
	})
}

// pump reads lines in the background so a cancelled context can interrupt a
// pending prompt. The goroutine ends at EOF.
func (r *TextRenderer) pump() {
	for {
		text, err := r.Reader.ReadString('\n')
		if text != "" {
			r.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				r.inputChan <- inputResult{err: err}
			}
			close(r.inputChan)
			return
		}
	}
}

// pickOption resolves a 1-based index to its option, or returns input as is.
func pickOption(options []string, input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	for _, o := range options {
		if strings.EqualFold(o, input) {
			return o
		}
	}
	return input
}

func prefillText(v any, ok bool) string {
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case float64:
		return formatNumber(val)
	}
	return cast.ToString(v)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func requiredMark(q domain.Question) string {
	if q.Rules.Required {
		return " *"
	}
	return ""
}
