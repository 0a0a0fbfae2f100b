// Package testutil provides conversation fixture generators for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/model"
)

// GeneratorConfig controls conversation generation.
type GeneratorConfig struct {
	Seed        int64   // Random seed for determinism (0 = fixed default)
	IDPrefix    string  // Prefix for node ids (default: "n")
	BaseTime    float64 // Epoch seconds of the first message
	HiddenRatio float64 // Fraction of messages flagged visually hidden
	SystemRatio float64 // Fraction of messages authored by system
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "n",
		BaseTime: 1_700_000_000,
	}
}

// Generator creates conversation fixtures with various shapes.
type Generator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	clock float64
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.BaseTime == 0 {
		cfg.BaseTime = 1_700_000_000
	}
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		clock: cfg.BaseTime,
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Node builders
// ============================================================================

// Root returns a message-less root node.
func Root(id string, children ...string) *model.Node {
	return &model.Node{ID: id, ParentNull: true, Children: children, ChildrenListed: true}
}

// Turn returns a node with a text message from role.
func Turn(id, parent, role, text string, createTime float64, children ...string) *model.Node {
	n := &model.Node{
		ID:             id,
		Children:       children,
		ChildrenListed: true,
		Message: &model.Message{
			ID:      "msg-" + id,
			Author:  &model.Author{Role: role},
			Content: model.Text(text),
		},
	}
	if parent != "" {
		n.Parent = parent
		n.HasParent = true
	}
	if createTime != 0 {
		n.Message.CreateTime = model.Seconds(createTime)
	}
	return n
}

// Hidden marks the node's message as visually hidden and returns it.
func Hidden(n *model.Node) *model.Node {
	if n.Message != nil {
		n.Message.Metadata.VisuallyHidden = true
	}
	return n
}

// Conversation wraps nodes in a conversation document.
func Conversation(currentNode string, nodes ...*model.Node) *model.Conversation {
	return &model.Conversation{
		Title:          "Fixture",
		ConversationID: "fixture",
		CurrentNode:    currentNode,
		Mapping:        model.NewMapping(nodes...),
	}
}

// ============================================================================
// Shape generators
// ============================================================================

// Chain creates root -> n1 -> n2 -> ... -> n{turns} alternating user and
// assistant turns. The last node is the only leaf.
func (g *Generator) Chain(turns int) *model.Conversation {
	nodes := []*model.Node{Root("root")}
	parent := nodes[0]
	for i := 1; i <= turns; i++ {
		id := g.id(i)
		n := g.turn(id, parent.ID, i)
		parent.Children = append(parent.Children, id)
		nodes = append(nodes, n)
		parent = n
	}
	return Conversation("", nodes...)
}

// Branching creates a tree where every message node has fanout children
// until depth is reached. Leaves number fanout^depth.
func (g *Generator) Branching(depth, fanout int) *model.Conversation {
	if fanout < 1 {
		fanout = 1
	}
	root := Root("root")
	nodes := []*model.Node{root}
	next := 1

	var grow func(parent *model.Node, level int)
	grow = func(parent *model.Node, level int) {
		if level > depth {
			return
		}
		for f := 0; f < fanout; f++ {
			id := g.id(next)
			next++
			n := g.turn(id, parent.ID, level)
			parent.Children = append(parent.Children, id)
			nodes = append(nodes, n)
			grow(n, level+1)
		}
	}
	grow(root, 1)
	return Conversation("", nodes...)
}

// Random creates a tree of size message nodes where each node attaches to a
// random earlier node.
func (g *Generator) Random(size int) *model.Conversation {
	root := Root("root")
	nodes := []*model.Node{root}
	for i := 1; i <= size; i++ {
		parent := nodes[g.rng.Intn(len(nodes))]
		id := g.id(i)
		n := g.turn(id, parent.ID, i)
		parent.Children = append(parent.Children, id)
		nodes = append(nodes, n)
	}
	return Conversation("", nodes...)
}

// ParentCycle creates size nodes whose parent links form a ring, with no root.
func (g *Generator) ParentCycle(size int) *model.Conversation {
	nodes := make([]*model.Node, 0, size)
	for i := 0; i < size; i++ {
		parent := g.id((i + size - 1) % size)
		nodes = append(nodes, g.turn(g.id(i), parent, i))
	}
	return Conversation("", nodes...)
}

func (g *Generator) id(i int) string {
	return fmt.Sprintf("%s%d", g.cfg.IDPrefix, i)
}

func (g *Generator) turn(id, parent string, i int) *model.Node {
	role := model.RoleUser
	if i%2 == 0 {
		role = model.RoleAssistant
	}
	if g.cfg.SystemRatio > 0 && g.rng.Float64() < g.cfg.SystemRatio {
		role = model.RoleSystem
	}
	g.clock += float64(1 + g.rng.Intn(30))
	n := Turn(id, parent, role, fmt.Sprintf("%s says %s", role, words[g.rng.Intn(len(words))]), g.clock)
	if g.cfg.HiddenRatio > 0 && g.rng.Float64() < g.cfg.HiddenRatio {
		Hidden(n)
	}
	return n
}

var words = []string{
	"hello", "route planning", "Hello World", "see https://example.com",
	"**bold** reply", "`code`", "a list:\n- one\n- two", "shrug",
}

// ============================================================================
// Document rendering
// ============================================================================

// Document renders a conversation back to export JSON, keeping node order.
func Document(c *model.Conversation) []byte {
	type authorJSON struct {
		Role string `json:"role"`
	}
	type messageJSON struct {
		ID         string         `json:"id"`
		Author     *authorJSON    `json:"author,omitempty"`
		CreateTime *float64       `json:"create_time,omitempty"`
		Content    any            `json:"content,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}
	type nodeJSON struct {
		ID       string       `json:"id"`
		Parent   *string      `json:"parent"`
		Children []string     `json:"children"`
		Message  *messageJSON `json:"message,omitempty"`
	}

	out := []byte(`{"title":` + quote(c.Title) + `,"conversation_id":` + quote(c.ConversationID))
	if c.ID != "" {
		out = append(out, `,"id":`+quote(c.ID)...)
	}
	for _, f := range []struct {
		key string
		ts  model.Epoch
	}{{"create_time", c.CreateTime}, {"update_time", c.UpdateTime}} {
		if f.ts.Valid {
			out = append(out, `,"`+f.key+`":`+strconv.FormatFloat(f.ts.Seconds, 'f', -1, 64)...)
		}
	}
	if c.CurrentNode != "" {
		out = append(out, `,"current_node":`+quote(c.CurrentNode)...)
	}
	out = append(out, `,"mapping":{`...)
	for i, id := range c.Mapping.Keys() {
		n, _ := c.Mapping.Get(id)
		nj := nodeJSON{ID: id, Children: n.Children}
		if nj.Children == nil {
			nj.Children = []string{}
		}
		if n.HasParent {
			p := n.Parent
			nj.Parent = &p
		}
		if m := n.Message; m != nil {
			mj := &messageJSON{ID: m.ID}
			if m.Author != nil {
				mj.Author = &authorJSON{Role: m.Author.Role}
			}
			if m.CreateTime.Valid {
				ts := m.CreateTime.Seconds
				mj.CreateTime = &ts
			}
			switch ct := m.Content.(type) {
			case model.TextContent:
				mj.Content = map[string]any{"content_type": "text", "parts": ct.Parts}
			case model.PartsContent:
				mj.Content = map[string]any{"content_type": ct.Type, "parts": ct.Parts}
			case model.OpaqueContent:
				mj.Content = ct.Value
			}
			if m.Metadata.VisuallyHidden {
				mj.Metadata = map[string]any{"is_visually_hidden_from_conversation": true}
			}
			nj.Message = mj
		}
		b, err := json.Marshal(nj)
		if err != nil {
			panic(fmt.Sprintf("testutil: marshal node %s: %v", id, err))
		}
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, quote(id)+":"...)
		out = append(out, b...)
	}
	out = append(out, "}}"...)
	return out
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
