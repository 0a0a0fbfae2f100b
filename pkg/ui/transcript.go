package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/markdown"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/render"
)

// maxCachedBodies bounds the rendered-markdown cache. The cache is dropped
// wholesale when it fills up; a transcript rarely has that many messages.
const maxCachedBodies = 1024

type bodyKey struct {
	text  string
	width int
}

// Layout is one drawn transcript: the viewport content plus where each
// record starts, so focus movement can scroll to it.
type Layout struct {
	Content string
	// Offsets[i] is the first content line of Records[i].
	Offsets []int
	// Records carries Truncate as measured against the rendered body.
	Records []render.Record
}

// LineCount returns the number of content lines.
func (l Layout) LineCount() int {
	if l.Content == "" {
		return 0
	}
	return strings.Count(l.Content, "\n") + 1
}

// Transcript draws render records as terminal blocks: a role badge line,
// the markdown body and, for long bodies, a collapse hint.
type Transcript struct {
	theme         Theme
	md            *markdown.TerminalRenderer
	format        render.TimeFormatter
	truncateLines int
	width         int

	cache    map[bodyKey]string
	expanded map[string]bool
}

// NewTranscript builds a transcript drawer. md may be nil, in which case
// bodies are shown as wrapped plain text.
func NewTranscript(theme Theme, md *markdown.TerminalRenderer, format render.TimeFormatter, truncateLines int) *Transcript {
	if format == nil {
		format = render.ISOTime
	}
	return &Transcript{
		theme:         theme,
		md:            md,
		format:        format,
		truncateLines: truncateLines,
		width:         80,
		cache:         make(map[bodyKey]string),
		expanded:      make(map[string]bool),
	}
}

// SetWidth sets the body wrap width.
func (t *Transcript) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	t.width = width
	if t.md != nil {
		if err := t.md.SetWidth(width); err != nil {
			debug.Log("transcript: resize renderer: %v", err)
			t.md = nil
		}
	}
}

// Width returns the body wrap width.
func (t *Transcript) Width() int { return t.width }

// SetTimeFormat changes how record times are shown.
func (t *Transcript) SetTimeFormat(format render.TimeFormatter) {
	if format != nil {
		t.format = format
	}
}

// Toggle flips the expanded state of the record for a mapping node and
// reports the new state. Node ids are unique; message ids may be empty.
func (t *Transcript) Toggle(nodeID string) bool {
	if t.expanded[nodeID] {
		delete(t.expanded, nodeID)
		return false
	}
	t.expanded[nodeID] = true
	return true
}

// Expanded reports whether the record for a node is expanded.
func (t *Transcript) Expanded(nodeID string) bool {
	return t.expanded[nodeID]
}

// Collapse forgets every expanded record. Called when a new document is
// loaded.
func (t *Transcript) Collapse() {
	clear(t.expanded)
}

// Render lays out records with records[focus] highlighted. A focus outside
// the range highlights nothing.
func (t *Transcript) Render(records []render.Record, focus int) Layout {
	out := Layout{
		Offsets: make([]int, len(records)),
		Records: make([]render.Record, len(records)),
	}
	var b strings.Builder
	line := 0
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n\n")
			line++
		}
		block, truncated := t.block(rec, i == focus)
		rec.Truncate = truncated
		out.Records[i] = rec
		out.Offsets[i] = line
		b.WriteString(block)
		line += strings.Count(block, "\n") + 1
	}
	out.Content = b.String()
	return out
}

func (t *Transcript) block(rec render.Record, focused bool) (string, bool) {
	lines := strings.Split(t.body(rec.Text), "\n")
	truncated := t.truncateLines > 0 && len(lines) > t.truncateLines
	if truncated && !t.expanded[rec.NodeID] {
		more := len(lines) - t.truncateLines
		lines = append(lines[:t.truncateLines:t.truncateLines],
			t.theme.Expand.Render(fmt.Sprintf("… %d more lines (enter to expand)", more)))
	} else if truncated {
		lines = append(lines, t.theme.Expand.Render("(enter to collapse)"))
	}

	parts := make([]string, 0, len(lines)+1)
	parts = append(parts, t.heading(rec))
	parts = append(parts, lines...)
	style := t.theme.Unfocused
	if focused {
		style = t.theme.Focused
	}
	return style.Render(strings.Join(parts, "\n")), truncated
}

func (t *Transcript) heading(rec render.Record) string {
	h := t.theme.RenderRoleBadge(rec.RoleLabel, rec.RoleClass)
	if rec.HasTime() {
		h += " " + t.theme.MutedText.Render(t.format(rec.At))
	}
	if rec.Hidden {
		h += " " + t.theme.Hidden.Render("(hidden)")
	}
	return h
}

// body renders text as markdown at the current width, memoized per text
// and width.
func (t *Transcript) body(text string) string {
	key := bodyKey{text: text, width: t.width}
	if out, ok := t.cache[key]; ok {
		metrics.RenderCache.Hit()
		return out
	}
	metrics.RenderCache.Miss()

	out := ""
	if t.md != nil {
		rendered, err := t.md.Render(text)
		if err != nil {
			debug.Log("transcript: markdown render failed, using plain text: %v", err)
		} else {
			out = rendered
		}
	}
	if out == "" {
		out = lipgloss.NewStyle().Width(t.width).Render(strings.TrimRight(text, "\n"))
	}

	if len(t.cache) >= maxCachedBodies {
		clear(t.cache)
	}
	t.cache[key] = out
	return out
}
