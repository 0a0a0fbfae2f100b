package markdown

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vanderheijden86/threadview/pkg/debug"
)

// AllowedSchemes lists the link schemes kept by SanitizeLinks.
var AllowedSchemes = []string{"http", "https", "mailto"}

// SanitizeLinks rewrites every <a href> in an HTML fragment. Allowed links
// open in a new browsing context with target="_blank" and
// rel="noopener noreferrer". Links with another scheme, no scheme, or an
// unparsable href are replaced by their visible text. It returns the new
// fragment and the number of links replaced.
func SanitizeLinks(fragment string) (string, int, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return "", 0, err
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	var links []*html.Node
	collectLinks(container, &links)

	rejected := 0
	for _, a := range links {
		href, _ := attr(a, "href")
		if allowed(href) {
			setAttr(a, "target", "_blank")
			setAttr(a, "rel", "noopener noreferrer")
			continue
		}
		text := textContent(a)
		if text == "" {
			text = href
		}
		a.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, a)
		a.Parent.RemoveChild(a)
		rejected++
	}
	debug.LogIf(rejected > 0, "markdown: replaced %d disallowed link(s)", rejected)

	var buf bytes.Buffer
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", rejected, err
		}
	}
	return buf.String(), rejected, nil
}

func collectLinks(n *html.Node, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		if _, ok := attr(n, "href"); ok {
			*out = append(*out, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLinks(c, out)
	}
}

func allowed(href string) bool {
	u, err := url.Parse(href)
	// Exports have no base URL to resolve against, so relative links are
	// dropped rather than pointed at the reader's filesystem.
	if err != nil || u.Scheme == "" {
		return false
	}
	for _, s := range AllowedSchemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
