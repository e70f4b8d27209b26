package report

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/mattn/go-isatty"
)

// DefaultTerminalWidth is used when the terminal width is unknown.
const DefaultTerminalWidth = 100

// RenderTerminal renders Markdown for display in a terminal.
func RenderTerminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTerminalWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.New(err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", errors.New(err)
	}

	return out, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
