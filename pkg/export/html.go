package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/markdown"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/version"
)

type htmlMessage struct {
	AnchorID  string
	RoleLabel string
	RoleClass string
	Hidden    bool
	Time      string
	ISO       string
	Body      template.HTML
}

type htmlPage struct {
	Meta      render.DocumentMeta
	Status    render.Status
	Messages  []htmlMessage
	Leaves    []render.LeafOption
	LeafID    string
	Version   string
	Generated string
	CSS       template.CSS
	JS        template.JS
}

// RenderHTML writes the snapshot as a standalone HTML page. Message text is
// rendered as markdown with raw HTML omitted and links restricted to
// http, https and mailto.
func RenderHTML(w io.Writer, snap *Snapshot) error {
	tmpl, err := pageTemplate()
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}
	css, err := readAsset(assetCSS)
	if err != nil {
		return err
	}
	js, err := readAsset(assetJS)
	if err != nil {
		return err
	}

	md := snap.markdown()
	page := htmlPage{
		Meta:      snap.Meta,
		Status:    snap.Status,
		Leaves:    snap.Leaves,
		LeafID:    snap.View.LeafID,
		Version:   version.Version,
		Generated: snap.TimeFormat(snap.GeneratedAt),
		// Assets are compiled into the binary, never user supplied.
		CSS: template.CSS(css),
		JS:  template.JS(js),
	}
	for _, r := range snap.View.Records {
		body, err := markdown.ToHTML(md, r.Text)
		if err != nil {
			debug.Log("export: %s: %v, falling back to escaped text", r.NodeID, err)
			body = "<pre>" + template.HTMLEscapeString(r.Text) + "</pre>"
		}
		page.Messages = append(page.Messages, htmlMessage{
			AnchorID:  r.AnchorID,
			RoleLabel: r.RoleLabel,
			RoleClass: r.RoleClass,
			Hidden:    r.Hidden,
			Time:      snap.formatTime(r),
			ISO:       r.ISOTimestamp,
			Body:      template.HTML(body),
		})
	}
	return tmpl.ExecuteTemplate(w, "page.html.tmpl", page)
}

// SaveHTML renders the page and writes it to path.
func SaveHTML(snap *Snapshot, path string) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, snap); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}
