// Package markdown renders message text to safe HTML fragments and to
// styled terminal output.
//
// HTML rendering never passes raw HTML through and autolinks bare URLs.
// Every fragment is post-processed by SanitizeLinks before it reaches a page.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/vanderheijden86/threadview/pkg/metrics"
)

// Renderer converts markdown-flavoured text to an HTML fragment.
type Renderer interface {
	Render(src string) (string, error)
}

// GoldmarkRenderer is the default Renderer.
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a renderer with autolinking, tables, strikethrough
// and hard line breaks. Raw HTML in the source is omitted.
func NewRenderer() *GoldmarkRenderer {
	return &GoldmarkRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Linkify,
				extension.Table,
				extension.Strikethrough,
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}
}

// Render implements Renderer.
func (g *GoldmarkRenderer) Render(src string) (string, error) {
	defer metrics.Timer(metrics.MarkdownRender)()

	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// ToHTML renders text with r and sanitizes the links of the result.
func ToHTML(r Renderer, text string) (string, error) {
	frag, err := r.Render(text)
	if err != nil {
		return "", err
	}
	out, _, err := SanitizeLinks(frag)
	return out, err
}
