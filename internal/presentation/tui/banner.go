package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"     _                       _          ", "#34d399"},
	{"  __| |_ ___ _ ____ __ ___ _(_)___ ___  ", "#2dd4bf"},
	{" (_-<  _/ -_) '_ \\ V  V / -_) (_-</ -_) ", "#22d3ee"},
	{" /__/\\__\\___| .__/\\_/\\_/\\___|_/__/\\___| ", "#38bdf8"},
	{"            |_|                         ", "#60a5fa"},
}

// PrintBanner writes the Stepwise banner followed by the survey title.
func PrintBanner(w io.Writer, title string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if title != "" {
		fmt.Fprintln(w, termenv.String("  "+title).Bold())
	}
	fmt.Fprintln(w)
}
