package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "Team feedback")
	assert.Contains(t, buf.String(), "Team feedback")
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "\n"), len(bannerLines)+2)
}

func TestMarkdown(t *testing.T) {
	out := NewMarkdown(60)("# Hello\n\nSome **bold** text")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "bold")
	assert.True(t, strings.HasSuffix(out, "\n"))

	assert.Equal(t, "x\n", Plain("x"))
	assert.Equal(t, "x\n", Plain("x\n"))
}
