package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// GraphExportFormat specifies the output format for graph export.
type GraphExportFormat string

const (
	GraphFormatJSON    GraphExportFormat = "json"
	GraphFormatDOT     GraphExportFormat = "dot"
	GraphFormatMermaid GraphExportFormat = "mermaid"
)

// GraphExportConfig configures graph export.
type GraphExportConfig struct {
	Format GraphExportFormat
	// Root limits the graph to the subtree under this node.
	Root string
	// Depth bounds the subtree depth (0 = unlimited).
	Depth int
}

// GraphExportResult is the robot payload of a graph export.
type GraphExportResult struct {
	Format         string            `json:"format"`
	Graph          string            `json:"graph,omitempty"`
	Nodes          int               `json:"nodes"`
	Edges          int               `json:"edges"`
	ActiveLeaf     string            `json:"active_leaf,omitempty"`
	FiltersApplied map[string]string `json:"filters_applied,omitempty"`
	Explanation    GraphExplanation  `json:"explanation"`
	Adjacency      *AdjacencyGraph   `json:"adjacency,omitempty"`
}

// GraphExplanation tells a reader how to use the payload.
type GraphExplanation struct {
	What        string `json:"what"`
	HowToRender string `json:"how_to_render,omitempty"`
	WhenToUse   string `json:"when_to_use"`
}

// AdjacencyGraph is the JSON adjacency list representation.
type AdjacencyGraph struct {
	Nodes []AdjacencyNode `json:"nodes"`
	Edges []AdjacencyEdge `json:"edges"`
}

// AdjacencyNode is one node of the adjacency graph.
type AdjacencyNode struct {
	ID      string `json:"id"`
	Role    string `json:"role,omitempty"`
	Preview string `json:"preview,omitempty"`
	Leaf    bool   `json:"leaf,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`
	Active  bool   `json:"active,omitempty"`
}

// AdjacencyEdge links a parent to a child.
type AdjacencyEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Active bool   `json:"active,omitempty"`
}

// ExportGraph exports the conversation tree in the requested format.
func ExportGraph(snap *Snapshot, config GraphExportConfig) (*GraphExportResult, error) {
	t := snap.Doc.Tree
	ids := t.IDs()
	filters := map[string]string{}
	if config.Root != "" {
		if _, ok := t.Node(config.Root); !ok {
			return nil, fmt.Errorf("graph root %q not found", config.Root)
		}
		ids = subtree(t, config.Root, config.Depth)
		filters["root"] = config.Root
		if config.Depth > 0 {
			filters["depth"] = strconv.Itoa(config.Depth)
		}
	}

	included := make(map[string]bool, len(ids))
	for _, id := range ids {
		included[id] = true
	}
	onPath := make(map[string]bool, len(snap.View.Path))
	for _, id := range snap.View.Path {
		onPath[id] = true
	}

	adj := &AdjacencyGraph{Nodes: []AdjacencyNode{}, Edges: []AdjacencyEdge{}}
	for _, id := range ids {
		n, _ := t.Node(id)
		an := AdjacencyNode{
			ID:     id,
			Role:   n.Role(),
			Leaf:   t.IsLeaf(id),
			Hidden: n.IsHidden(),
			Active: onPath[id],
		}
		if n.Message != nil {
			an.Preview = render.Preview(strings.TrimSpace(content.Extract(n.Message)), 42)
		}
		adj.Nodes = append(adj.Nodes, an)
	}
	for _, id := range ids {
		for _, child := range t.Children(id) {
			if !included[child] {
				continue
			}
			if p, ok := t.Parent(child); !ok || p != id {
				continue
			}
			adj.Edges = append(adj.Edges, AdjacencyEdge{From: id, To: child, Active: onPath[id] && onPath[child]})
		}
	}

	result := &GraphExportResult{
		Format:     string(config.Format),
		Nodes:      len(adj.Nodes),
		Edges:      len(adj.Edges),
		ActiveLeaf: snap.View.LeafID,
	}
	if len(filters) > 0 {
		result.FiltersApplied = filters
	}

	switch config.Format {
	case GraphFormatDOT:
		result.Graph = generateDOT(adj)
		result.Explanation = GraphExplanation{
			What:        "Conversation tree in Graphviz DOT format",
			HowToRender: "Save to file.dot, run: dot -Tpng file.dot -o tree.png",
			WhenToUse:   "When you need a visual overview of the branches",
		}
	case GraphFormatMermaid:
		var active []string
		for _, id := range snap.View.Path {
			if included[id] {
				active = append(active, id)
			}
		}
		result.Graph = GenerateMermaidGraph(t, active, MermaidConfig{Only: ids, MaxNodes: len(ids) + 1})
		result.Explanation = GraphExplanation{
			What:        "Conversation tree in Mermaid flowchart format",
			HowToRender: "Paste into any Markdown renderer that supports Mermaid, or use mermaid.live",
			WhenToUse:   "When you need an embeddable diagram",
		}
	default:
		result.Format = string(GraphFormatJSON)
		result.Adjacency = adj
		result.Explanation = GraphExplanation{
			What:      "Conversation tree as JSON adjacency list",
			WhenToUse: "When you need programmatic access to the tree structure",
		}
	}
	return result, nil
}

// subtree returns root and its descendants breadth first, following only
// children that link back to their parent.
func subtree(t *tree.Tree, root string, maxDepth int) []string {
	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{root: true}
	queue := []item{{root, 0}}
	var out []string
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		out = append(out, curr.id)
		if maxDepth > 0 && curr.depth >= maxDepth {
			continue
		}
		for _, child := range t.Children(curr.id) {
			if visited[child] {
				continue
			}
			if p, ok := t.Parent(child); !ok || p != curr.id {
				continue
			}
			if _, ok := t.Node(child); !ok {
				continue
			}
			visited[child] = true
			queue = append(queue, item{child, curr.depth + 1})
		}
	}
	return out
}

func generateDOT(adj *AdjacencyGraph) string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	for _, n := range adj.Nodes {
		label := fmt.Sprintf("%s\\n%s", escapeDOTString(render.RoleLabel(n.Role)), escapeDOTString(truncateRunes(n.Preview, 30)))
		penwidth := 1.0
		if n.Active {
			penwidth = 3.0
		}
		style := "filled"
		if n.Hidden {
			style = "filled,dashed"
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"%s\", style=\"%s\", penwidth=%.1f];\n",
			escapeDOTString(n.ID), label, dotRoleColor(n.Role), style, penwidth))
	}
	sb.WriteString("\n")

	for _, e := range adj.Edges {
		style, color := "solid", "#999999"
		if e.Active {
			style, color = "bold", "#2563EB"
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\" [style=%s, color=\"%s\"];\n",
			escapeDOTString(e.From), escapeDOTString(e.To), style, color))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func dotRoleColor(role string) string {
	switch role {
	case "":
		return "#F3F4F6"
	case "user":
		return "#E0E7FF"
	case "system":
		return "#FEF3C7"
	}
	return "#FFFFFF"
}

var dotReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func escapeDOTString(s string) string {
	return dotReplacer.Replace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
