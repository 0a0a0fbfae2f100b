package loader_test

import (
	"testing"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/testutil"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// FuzzParse feeds arbitrary bytes through load, leaf selection, filtering
// and rendering. Nothing may panic or hang.
//
// Run with: go test -fuzz=FuzzParse -fuzztime=10m ./pkg/loader/...
func FuzzParse(f *testing.F) {
	seeds := []string{
		testutil.ScenarioSingleLeaf,
		``,
		`{}`,
		`[]`,
		`{"mapping":{}}`,
		`{"mapping":{"a":null,"b":7,"c":{"parent":"c","children":["c"],"message":{"author":{"role":"user"}}}}}`,
		`{"mapping":{"r":{"parent":null,"children":"oops"},"x":{"parent":"r","children":[],"message":{"content":{"parts":{"k":[1,{"z":null}]}}}}}}`,
		`{"current_node":5,"create_time":"soon","mapping":{"a":{"parent":null,"children":[],"message":{"create_time":1e309,"author":{},"content":"plain"}}}}`,
		string(testutil.Document(testutil.New(testutil.GeneratorConfig{Seed: 3, HiddenRatio: 0.5}).Random(12))),
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		doc, err := loader.Parse(data, "fuzz.json", loader.ParseOptions{})
		if err != nil {
			return
		}
		for _, id := range doc.Tree.IDs() {
			if path := tree.PathTo(doc.Tree, id); len(path) > doc.Tree.Len() {
				t.Fatalf("path from %s longer than mapping", id)
			}
			n, _ := doc.Tree.Node(id)
			_ = content.Extract(n.Message)
		}
		leaf, _ := tree.SelectLeaf(doc.Tree, doc.Conversation.CurrentNode)
		v := render.Render(doc.Tree, leaf, filter.Config{ShowHidden: true, ShowSystem: true, Query: "a"})
		_ = v.Status()
		_ = render.Meta(doc.Conversation, doc.Source, nil)
	})
}
