// Package render turns a tree, an active leaf and a filter configuration
// into the records a presentation layer draws.
//
// Render is a pure function: every call recomputes the path, the filter
// result and the records from scratch.
package render

import (
	"time"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// ISOLayout formats timestamps like JavaScript's Date.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one message ready for display.
type Record struct {
	AnchorID  string `json:"anchor_id"`
	NodeID    string `json:"node_id"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
	RoleClass string `json:"role_class"`
	// At is the zero time when the message time is unknown.
	At           time.Time `json:"-"`
	ISOTimestamp string    `json:"timestamp,omitempty"`
	Hidden       bool      `json:"hidden,omitempty"`
	// Text is always the full extracted text.
	Text string `json:"text"`
	// Truncate is set by the presentation layer once it has measured the
	// rendered content.
	Truncate bool `json:"truncate,omitempty"`
}

// HasTime reports whether the record carries a known timestamp.
func (r Record) HasTime() bool {
	return !r.At.IsZero()
}

// EmptyReason says why a view has no records.
type EmptyReason string

const (
	NotEmpty     EmptyReason = ""
	NoActiveLeaf EmptyReason = "no_active_leaf"
	LeafNotFound EmptyReason = "leaf_not_found"
	AllFiltered  EmptyReason = "all_filtered"
)

// View is the result of one render pass.
type View struct {
	LeafID   string        `json:"leaf_id,omitempty"`
	Path     []string      `json:"path"`
	Records  []Record      `json:"records"`
	Empty    EmptyReason   `json:"empty_reason,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Config   filter.Config `json:"filter"`
	Report   filter.Report `json:"report"`
}

// Render resolves leafID to its path, filters it and builds records.
func Render(t *tree.Tree, leafID string, cfg filter.Config) View {
	v := View{
		LeafID:   leafID,
		Path:     []string{},
		Records:  []Record{},
		Degraded: t.Degraded(),
		Config:   cfg,
	}
	if leafID == "" {
		v.Empty = NoActiveLeaf
		return v
	}
	if _, ok := t.Node(leafID); !ok {
		v.Empty = LeafNotFound
		return v
	}

	v.Path = tree.PathTo(t, leafID)
	kept, rep := filter.Explain(t.Nodes(v.Path), cfg)
	v.Report = rep
	if len(kept) == 0 {
		v.Empty = AllFiltered
		return v
	}
	for _, n := range kept {
		v.Records = append(v.Records, NewRecord(n))
	}
	return v
}

// NewRecord builds the record for a node that passed the filter.
func NewRecord(n *model.Node) Record {
	msg := n.Message
	role := n.Role()
	r := Record{
		AnchorID:  AnchorID(msg),
		NodeID:    n.ID,
		Role:      role,
		RoleLabel: RoleLabel(role),
		RoleClass: RoleClass(role),
		Hidden:    n.IsHidden(),
		Text:      content.Extract(msg),
	}
	if ts, ok := msg.CreateTime.Time(); ok {
		r.At = ts
		r.ISOTimestamp = ts.Format(ISOLayout)
	}
	return r
}

// AnchorID returns the element id used to address a message.
func AnchorID(msg *model.Message) string {
	if msg == nil {
		return "msg-"
	}
	return "msg-" + msg.ID
}

// RoleLabel returns the display label of a role.
func RoleLabel(role string) string {
	switch role {
	case model.RoleUser:
		return "User"
	case model.RoleAssistant:
		return "Assistant"
	case model.RoleSystem:
		return "System"
	case "":
		return "Unknown"
	}
	return role
}

// RoleClass returns the style class of a role. Unrecognised roles are
// styled like the assistant.
func RoleClass(role string) string {
	switch role {
	case model.RoleUser, model.RoleSystem:
		return role
	}
	return model.RoleAssistant
}

// Len returns the number of records.
func (v View) Len() int {
	return len(v.Records)
}
