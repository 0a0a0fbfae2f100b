// Package tree wraps a conversation mapping with navigation helpers: root
// lookup, leaf discovery and ordering, and root-to-leaf path resolution.
//
// A Tree is immutable once built and safe for concurrent readers.
package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/model"
)

// ErrInvalidFormat is returned when a conversation has no usable mapping.
var ErrInvalidFormat = errors.New("invalid conversation format")

// Tree is a read-only view over a conversation mapping.
type Tree struct {
	mapping *model.Mapping
	root    string
	hasRoot bool
	leaves  []string
}

// New builds a tree from a decoded conversation. A mapping without a root
// still loads; Root reports not-found and Degraded returns true.
func New(c *model.Conversation) (*Tree, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no document", ErrInvalidFormat)
	}
	return FromMapping(c.Mapping)
}

// FromMapping builds a tree directly from a mapping.
func FromMapping(m *model.Mapping) (*Tree, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: missing mapping object", ErrInvalidFormat)
	}
	defer metrics.Timer(metrics.TreeBuild)()

	t := &Tree{mapping: m}
	for _, id := range m.Keys() {
		n, _ := m.Get(id)
		if !t.hasRoot && n.ParentNull {
			t.root = id
			t.hasRoot = true
		}
		if n.IsLeaf() {
			t.leaves = append(t.leaves, id)
		}
	}
	debug.LogIf(!t.hasRoot, "tree: no root among %d nodes", m.Len())
	return t, nil
}

// Root returns the id of the first node whose parent is null.
func (t *Tree) Root() (string, bool) {
	return t.root, t.hasRoot
}

// Degraded reports whether the mapping lacks a root node.
func (t *Tree) Degraded() bool {
	return !t.hasRoot
}

// Node returns the node stored under id.
func (t *Tree) Node(id string) (*model.Node, bool) {
	return t.mapping.Get(id)
}

// Leaves returns every node with a message and no children, in document
// order. Callers wanting time order use SortedLeaves.
func (t *Tree) Leaves() []string {
	out := make([]string, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// IsLeaf reports whether id names a leaf in this tree.
func (t *Tree) IsLeaf(id string) bool {
	n, ok := t.mapping.Get(id)
	return ok && n.IsLeaf()
}

// IDs returns all node ids in document order.
func (t *Tree) IDs() []string {
	keys := t.mapping.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return t.mapping.Len()
}

// Children returns the declared child ids of a node.
func (t *Tree) Children(id string) []string {
	n, ok := t.mapping.Get(id)
	if !ok {
		return nil
	}
	return n.Children
}

// Parent returns the parent id of a node, if it links to one.
func (t *Tree) Parent(id string) (string, bool) {
	n, ok := t.mapping.Get(id)
	if !ok || !n.HasParent {
		return "", false
	}
	return n.Parent, true
}

// Nodes resolves ids to nodes, skipping ids that are not in the mapping.
func (t *Tree) Nodes(ids []string) []*model.Node {
	out := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := t.mapping.Get(id); ok {
			out = append(out, n)
		}
	}
	return out
}
