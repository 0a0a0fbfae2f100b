package export

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// MermaidConfig configures the branch graph.
type MermaidConfig struct {
	// MaxNodes caps the graph size. Above it only the active path is drawn.
	// <= 0 uses DefaultMermaidMaxNodes.
	MaxNodes int
	// LabelRunes is the preview length of node labels.
	LabelRunes int
	// Only restricts the graph to these ids when non-nil.
	Only []string
}

// DefaultMermaidMaxNodes keeps generated diagrams renderable.
const DefaultMermaidMaxNodes = 150

// GenerateMermaidGraph draws the conversation tree as a Mermaid flowchart.
// Nodes on active are highlighted and joined by thick edges.
func GenerateMermaidGraph(t *tree.Tree, active []string, config MermaidConfig) string {
	if config.MaxNodes <= 0 {
		config.MaxNodes = DefaultMermaidMaxNodes
	}
	if config.LabelRunes <= 0 {
		config.LabelRunes = 28
	}

	onPath := make(map[string]bool, len(active))
	for _, id := range active {
		onPath[id] = true
	}

	ids := t.IDs()
	if config.Only != nil {
		ids = config.Only
	}
	truncated := false
	total := len(ids)
	if len(ids) > config.MaxNodes {
		ids = active
		truncated = true
	}
	included := make(map[string]bool, len(ids))
	for _, id := range ids {
		included[id] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    classDef user fill:#E0E7FF,stroke:#333,color:#000\n")
	sb.WriteString("    classDef assistant fill:#FFFFFF,stroke:#333,color:#000\n")
	sb.WriteString("    classDef system fill:#FEF3C7,stroke:#333,color:#000\n")
	sb.WriteString("    classDef empty fill:#F3F4F6,stroke:#999,color:#666\n")
	sb.WriteString("    classDef active stroke:#2563EB,stroke-width:3px\n")
	sb.WriteString("\n")

	safeIDMap := make(map[string]string, len(ids))
	usedSafe := make(map[string]bool, len(ids))
	getSafeID := func(orig string) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		base := sanitizeMermaidID(orig)
		safe := base
		if usedSafe[safe] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}
	for _, id := range ids {
		getSafeID(id)
	}

	for _, id := range ids {
		n, _ := t.Node(id)
		safeID := getSafeID(id)
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", safeID, mermaidLabel(n, config.LabelRunes)))
		sb.WriteString(fmt.Sprintf("    class %s %s\n", safeID, mermaidClass(n)))
		if onPath[id] {
			sb.WriteString(fmt.Sprintf("    class %s active\n", safeID))
		}
	}
	sb.WriteString("\n")

	for _, id := range ids {
		for _, child := range t.Children(id) {
			if !included[child] {
				continue
			}
			if p, ok := t.Parent(child); !ok || p != id {
				continue
			}
			link := "-->"
			if onPath[id] && onPath[child] {
				link = "==>"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", getSafeID(id), link, getSafeID(child)))
		}
	}

	if truncated {
		sb.WriteString(fmt.Sprintf("    Omitted[\"%d more nodes not shown\"]\n", total-len(ids)))
	}
	return sb.String()
}

func mermaidLabel(n *model.Node, runes int) string {
	if n == nil {
		return "?"
	}
	if n.Message == nil {
		return sanitizeMermaidText(n.ID)
	}
	preview := render.Preview(strings.TrimSpace(content.Extract(n.Message)), runes)
	if preview == "" {
		return render.RoleLabel(n.Role())
	}
	return render.RoleLabel(n.Role()) + "<br/>" + sanitizeMermaidText(preview)
}

func mermaidClass(n *model.Node) string {
	if n == nil || n.Message == nil {
		return "empty"
	}
	return render.RoleClass(n.Role())
}

// sanitizeMermaidID keeps letters, digits, hyphens and underscores.
func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

var mermaidReplacer = strings.NewReplacer(
	"\"", "'",
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	"<", "&lt;",
	">", "&gt;",
	"|", "/",
	"`", "'",
	"\n", " ",
	"\r", "",
)

// sanitizeMermaidText makes text safe inside a quoted node label.
func sanitizeMermaidText(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, mermaidReplacer.Replace(text))
}
