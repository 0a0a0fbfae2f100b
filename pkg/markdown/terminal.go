package markdown

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/threadview/pkg/metrics"
)

// TerminalRenderer renders markdown as ANSI-styled text for the TUI.
type TerminalRenderer struct {
	mu    sync.Mutex
	r     *glamour.TermRenderer
	style string
	width int
}

// NewTerminalRenderer builds a renderer for the given style ("auto",
// "dark", "light", "notty", or any glamour standard style) and wrap width.
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	t := &TerminalRenderer{style: style}
	if err := t.SetWidth(width); err != nil {
		return nil, err
	}
	return t, nil
}

// SetWidth rebuilds the underlying renderer for a new wrap width.
func (t *TerminalRenderer) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.r != nil && t.width == width {
		return nil
	}

	styleOpt := glamour.WithAutoStyle()
	if t.style != "" && t.style != "auto" {
		styleOpt = glamour.WithStandardStyle(t.style)
	}
	r, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	t.r = r
	t.width = width
	return nil
}

// Width returns the current wrap width.
func (t *TerminalRenderer) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Render implements Renderer for terminal output. Leading and trailing
// blank lines added by glamour are trimmed.
func (t *TerminalRenderer) Render(src string) (string, error) {
	defer metrics.Timer(metrics.MarkdownRender)()

	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.r.Render(src)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
