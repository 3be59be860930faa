// Package output renders terminal output: glamour-backed markdown wrapped
// to the detected terminal width.
package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Render renders markdown for the terminal.
func Render(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(Width()),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}

// Width returns the terminal width clamped to a sane rendering range.
// Falls back to $COLUMNS, then 80, when stdout is not a terminal.
func Width() int {
	w := 0
	if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		w = tw
	}
	if w <= 0 {
		w, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	switch {
	case w <= 0:
		return 80
	case w < 20:
		return 20
	default:
		return w
	}
}
