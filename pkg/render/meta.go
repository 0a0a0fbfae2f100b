package render

import (
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// UntitledPlaceholder is shown when a document has no title.
const UntitledPlaceholder = "(untitled)"

// TimeFormatter formats a known timestamp for display.
type TimeFormatter func(time.Time) string

// LocalTime formats in the local zone with layout.
func LocalTime(layout string) TimeFormatter {
	if layout == "" {
		layout = time.DateTime
	}
	return func(t time.Time) string {
		return t.Local().Format(layout)
	}
}

// ISOTime formats like Record.ISOTimestamp.
func ISOTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// DocumentMeta is the header shown above a transcript.
type DocumentMeta struct {
	FileName       string `json:"file_name,omitempty"`
	Title          string `json:"title"`
	ConversationID string `json:"conversation_id"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`
}

// Meta describes a conversation. Unknown times render as "".
func Meta(c *model.Conversation, fileName string, format TimeFormatter) DocumentMeta {
	if format == nil {
		format = ISOTime
	}
	m := DocumentMeta{FileName: fileName, Title: UntitledPlaceholder}
	if c == nil {
		return m
	}
	if c.Title != "" {
		m.Title = c.Title
	}
	m.ConversationID = c.DisplayID()
	m.Created = formatEpoch(c.CreateTime, format)
	m.Updated = formatEpoch(c.UpdateTime, format)
	return m
}

// Subtitle joins the file name and title as "file · title".
func (m DocumentMeta) Subtitle() string {
	if m.FileName == "" {
		return m.Title
	}
	return m.FileName + " · " + m.Title
}

func formatEpoch(e model.Epoch, format TimeFormatter) string {
	ts, ok := e.Time()
	if !ok {
		return ""
	}
	return format(ts)
}

// LeafOption is one entry of the leaf picker.
type LeafOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	At    string `json:"timestamp,omitempty"`
}

const previewRunes = 42

var spaceRun = regexp.MustCompile(`\s+`)

// LeafOptions lists the leaves of t oldest first with display labels.
func LeafOptions(t *tree.Tree, format TimeFormatter) []LeafOption {
	if format == nil {
		format = ISOTime
	}
	ids := tree.SortedLeaves(t)
	out := make([]LeafOption, 0, len(ids))
	for _, id := range ids {
		n, _ := t.Node(id)
		opt := LeafOption{ID: id, Label: LeafLabel(n, format)}
		if ts, ok := n.Message.CreateTime.Time(); ok {
			opt.At = ISOTime(ts)
		}
		out = append(out, opt)
	}
	return out
}

// LeafLabel is "<role> <time>  <preview>", the preview being the first
// characters of the message with whitespace runs collapsed.
func LeafLabel(n *model.Node, format TimeFormatter) string {
	var when string
	var text string
	if n != nil && n.Message != nil {
		when = formatEpoch(n.Message.CreateTime, format)
		text = strings.TrimSpace(content.Extract(n.Message))
	}
	return RoleLabel(n.Role()) + " " + when + "  " + Preview(text, previewRunes)
}

// Preview returns the first max runes of s with whitespace collapsed.
func Preview(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		r = r[:max]
	}
	return spaceRun.ReplaceAllString(string(r), " ")
}
