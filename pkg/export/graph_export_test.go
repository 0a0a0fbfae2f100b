package export

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/threadview/pkg/filter"
)

func TestExportGraphJSON(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	result, err := ExportGraph(snap, GraphExportConfig{Format: GraphFormatJSON})
	if err != nil {
		t.Fatal(err)
	}
	if result.Format != "json" || result.Nodes != 5 {
		t.Errorf("result = %+v", result)
	}
	// r->a and a->b, a->c; h links to r but r does not list it.
	if result.Edges != 3 {
		t.Errorf("edges = %d, want 3", result.Edges)
	}
	if result.Adjacency == nil {
		t.Fatal("adjacency missing")
	}
	active := 0
	for _, e := range result.Adjacency.Edges {
		if e.Active {
			active++
		}
	}
	if active != 2 {
		t.Errorf("active edges = %d, want 2", active)
	}
	if result.Graph != "" {
		t.Error("json format should not carry a graph string")
	}
}

func TestExportGraphDOT(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	result, err := ExportGraph(snap, GraphExportConfig{Format: GraphFormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"digraph G {", `"a" -> "b" [style=bold`, `"a" -> "c" [style=solid`, `style="filled,dashed"`} {
		if !strings.Contains(result.Graph, want) {
			t.Errorf("dot missing %q\n%s", want, result.Graph)
		}
	}
}

func TestExportGraphSubtree(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	result, err := ExportGraph(snap, GraphExportConfig{Format: GraphFormatMermaid, Root: "a", Depth: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Nodes != 3 || result.Edges != 2 {
		t.Errorf("subtree nodes=%d edges=%d, want 3/2", result.Nodes, result.Edges)
	}
	if strings.Contains(result.Graph, "r[") {
		t.Error("node outside subtree drawn")
	}
	if result.FiltersApplied["root"] != "a" || result.FiltersApplied["depth"] != "1" {
		t.Errorf("filters = %v", result.FiltersApplied)
	}

	if _, err := ExportGraph(snap, GraphExportConfig{Root: "missing"}); err == nil {
		t.Error("expected error for unknown root")
	}
}

func TestEscapeDOTString(t *testing.T) {
	if got := escapeDOTString("a\"b\\c\nd"); got != `a\"b\\c\nd` {
		t.Errorf("escapeDOTString = %q", got)
	}
}
