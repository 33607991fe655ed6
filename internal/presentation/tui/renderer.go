package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders markdown text for the terminal.
type Markdown func(string) string

// NewMarkdown returns a glamour-backed Markdown renderer wrapping at width.
// When the terminal renderer cannot be built or fails, text is returned as is.
func NewMarkdown(width int) Markdown {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return func(md string) string {
		out, err := r.Render(md)
		if err != nil {
			return md
		}
		return strings.TrimRight(out, "\n") + "\n"
	}
}

// Plain renders markdown unchanged.
func Plain(md string) string {
	if strings.HasSuffix(md, "\n") {
		return md
	}
	return md + "\n"
}
