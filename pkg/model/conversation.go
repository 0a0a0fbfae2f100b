// Package model defines the exported conversation document: a mapping of
// node ids to nodes forming a tree, with optional messages on each node.
//
// Decoding is deliberately lenient. Export formats are not a closed set, so a
// field of an unexpected type is treated as absent instead of failing the
// whole document. Only the top-level shape (an object with a mapping object)
// is enforced, and that check lives in the loader.
package model

import (
	"math"
	"time"
)

// Role values with dedicated presentation. Any other role string is allowed.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is one exported conversation document.
type Conversation struct {
	Title          string
	ConversationID string
	ID             string
	CreateTime     Epoch
	UpdateTime     Epoch
	CurrentNode    string

	// Mapping is nil when the document has no usable mapping object.
	Mapping *Mapping
}

// DisplayID returns conversation_id, falling back to id.
func (c *Conversation) DisplayID() string {
	if c == nil {
		return ""
	}
	if c.ConversationID != "" {
		return c.ConversationID
	}
	return c.ID
}

// Node is one entry of the mapping. Parent and children are ids resolved
// through the owning Mapping, never direct references.
type Node struct {
	ID string

	// Parent is the parent node id when the node links to one.
	Parent string
	// HasParent reports whether Parent holds a usable id.
	HasParent bool
	// ParentNull is set when the document explicitly declares "parent": null.
	// Only such nodes qualify as the root.
	ParentNull bool

	Children []string
	// ChildrenListed is false when "children" is missing or not an array.
	ChildrenListed bool

	Message *Message
}

// IsLeaf reports whether the node carries a message and an empty children list.
func (n *Node) IsLeaf() bool {
	return n != nil && n.Message != nil && n.ChildrenListed && len(n.Children) == 0
}

// IsHidden reports whether the message is flagged as visually hidden.
func (n *Node) IsHidden() bool {
	return n != nil && n.Message != nil && n.Message.Metadata.VisuallyHidden
}

// Role returns the author role, or "" when unknown.
func (n *Node) Role() string {
	if n == nil || n.Message == nil || n.Message.Author == nil {
		return ""
	}
	return n.Message.Author.Role
}

// Message is the payload of a rendered node.
type Message struct {
	ID         string
	Author     *Author
	CreateTime Epoch
	// Content is nil when the message has no content.
	Content  Content
	Metadata Metadata
}

// Author identifies who produced a message.
type Author struct {
	Role string
}

// Metadata holds the message metadata fields the viewer understands.
type Metadata struct {
	VisuallyHidden bool
}

// Epoch is an optional epoch-seconds timestamp. The zero value means unknown.
type Epoch struct {
	Seconds float64
	Valid   bool
}

// Seconds builds a valid Epoch. Non-finite input yields an unknown time.
func Seconds(s float64) Epoch {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return Epoch{}
	}
	return Epoch{Seconds: s, Valid: true}
}

// SortKey returns the value used to order by time; unknown sorts as 0.
func (e Epoch) SortKey() float64 {
	if !e.Valid {
		return 0
	}
	return e.Seconds
}

// maxEpochSeconds is the largest timestamp a browser Date can hold.
const maxEpochSeconds = 8.64e12

// Time converts to a UTC time. Unknown, non-positive and out-of-range values
// report false.
func (e Epoch) Time() (time.Time, bool) {
	if !e.Valid || e.Seconds <= 0 || e.Seconds > maxEpochSeconds {
		return time.Time{}, false
	}
	sec, frac := math.Modf(e.Seconds)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

// Mapping is the id -> node dictionary. It remembers the key order of the
// source document, which decides root lookup ties and leaf ordering ties.
type Mapping struct {
	order []string
	nodes map[string]*Node
}

// NewMapping builds a mapping from nodes in order. Later duplicates replace
// earlier ones but keep the first position.
func NewMapping(nodes ...*Node) *Mapping {
	m := &Mapping{nodes: make(map[string]*Node, len(nodes))}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		m.put(n.ID, n)
	}
	return m
}

func (m *Mapping) put(id string, n *Node) {
	if _, exists := m.nodes[id]; !exists {
		m.order = append(m.order, id)
	}
	m.nodes[id] = n
}

// Get returns the node for id.
func (m *Mapping) Get(id string) (*Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m.nodes[id]
	return n, ok
}

// Keys returns node ids in document order. The slice must not be modified.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return m.order
}

// Len returns the number of nodes.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}
