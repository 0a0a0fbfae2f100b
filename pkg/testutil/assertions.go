package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/model"
)

// Lookup resolves node ids; *tree.Tree satisfies it.
type Lookup interface {
	Node(id string) (*model.Node, bool)
}

// AssertPathWellFormed verifies that path starts at a null-parent node, ends
// at leaf and that each element is the parent of the next.
func AssertPathWellFormed(t *testing.T, lk Lookup, path []string, leaf string) {
	t.Helper()
	if len(path) == 0 {
		t.Fatalf("path to %s is empty", leaf)
	}
	first, ok := lk.Node(path[0])
	if !ok {
		t.Fatalf("path head %s not in mapping", path[0])
	}
	if !first.ParentNull {
		t.Errorf("path head %s is not a root (parent=%q)", path[0], first.Parent)
	}
	if last := path[len(path)-1]; last != leaf {
		t.Errorf("path ends at %s, want %s", last, leaf)
	}
	for i := 0; i+1 < len(path); i++ {
		n, ok := lk.Node(path[i+1])
		if !ok {
			t.Errorf("path[%d]=%s not in mapping", i+1, path[i+1])
			continue
		}
		if !n.HasParent || n.Parent != path[i] {
			t.Errorf("path[%d]=%s has parent %q, want %q", i+1, path[i+1], n.Parent, path[i])
		}
	}
}

// AssertSubsequence verifies that sub appears in seq in the same order.
func AssertSubsequence(t *testing.T, seq, sub []string) {
	t.Helper()
	j := 0
	for i := 0; i < len(seq) && j < len(sub); i++ {
		if seq[i] == sub[j] {
			j++
		}
	}
	if j != len(sub) {
		t.Errorf("%v is not an ordered subsequence of %v", sub, seq)
	}
}

// AssertIDs compares node ids in order.
func AssertIDs(t *testing.T, got []*model.Node, want ...string) {
	t.Helper()
	ids := NodeIDs(got)
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

// NodeIDs returns the ids of nodes in order.
func NodeIDs(nodes []*model.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile compares output against a file under testdata.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper. Setting GENERATE_GOLDEN
// rewrites the file instead of comparing.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	want := strings.Split(string(expected), "\n")
	got := strings.Split(actual, "\n")
	for i := 0; i < len(want) || i < len(got); i++ {
		var w, a string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			a = got[i]
		}
		if w != a {
			g.t.Errorf("golden mismatch at line %d:\nwant: %s\ngot:  %s", i+1, w, a)
			return
		}
	}
}

// WriteConversation writes c as an export document into dir and returns the path.
func WriteConversation(t *testing.T, dir, name string, c *model.Conversation) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Document(c), 0o644); err != nil {
		t.Fatalf("write conversation: %v", err)
	}
	return path
}

// WriteRaw writes raw bytes into dir and returns the path.
func WriteRaw(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// ScenarioSingleLeaf is the smallest renderable document: a root with one
// user message "hi".
const ScenarioSingleLeaf = `{"mapping":{` +
	`"root":{"parent":null,"children":["a"]},` +
	`"a":{"parent":"root","children":[],"message":{"id":"a","author":{"role":"user"},` +
	`"content":{"content_type":"text","parts":["hi"]}}}}}`
