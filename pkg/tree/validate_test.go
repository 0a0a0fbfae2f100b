package tree_test

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/testutil"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

func kinds(problems []tree.Problem) string {
	var out []string
	for _, p := range problems {
		out = append(out, string(p.Kind))
	}
	return strings.Join(out, ",")
}

func TestValidateWellFormed(t *testing.T) {
	tr := mustTree(t, testutil.NewDefault().Branching(2, 3))
	if problems := tr.Validate(); len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
}

func TestValidateDefects(t *testing.T) {
	tests := []struct {
		name       string
		nodes      []*model.Node
		wantKinds  string
		wantErrors bool
	}{
		{
			name: "multiple roots",
			nodes: []*model.Node{
				testutil.Root("r1"),
				testutil.Root("r2"),
			},
			wantKinds: "multiple_roots",
		},
		{
			name: "dangling child",
			nodes: []*model.Node{
				testutil.Root("r", "ghost"),
			},
			wantKinds:  "dangling_child",
			wantErrors: true,
		},
		{
			name: "dangling parent",
			nodes: []*model.Node{
				testutil.Root("r"),
				testutil.Turn("a", "ghost", model.RoleUser, "", 1),
			},
			wantKinds:  "dangling_parent",
			wantErrors: true,
		},
		{
			name: "mismatch",
			nodes: []*model.Node{
				testutil.Root("r", "a"),
				testutil.Turn("b", "r", model.RoleUser, "", 1, "a"),
				testutil.Turn("a", "b", model.RoleUser, "", 2),
			},
			wantKinds: "child_parent_mismatch",
		},
		{
			name: "self parent",
			nodes: []*model.Node{
				testutil.Root("r"),
				testutil.Turn("a", "a", model.RoleUser, "", 1),
			},
			wantKinds:  "parent_cycle",
			wantErrors: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mustTree(t, testutil.Conversation("", tt.nodes...))
			problems := tr.Validate()
			if got := kinds(problems); got != tt.wantKinds {
				t.Errorf("kinds = %s, want %s", got, tt.wantKinds)
			}
			if got := tree.HasErrors(problems); got != tt.wantErrors {
				t.Errorf("HasErrors = %v, want %v", got, tt.wantErrors)
			}
		})
	}
}

func TestValidateCycle(t *testing.T) {
	tr := mustTree(t, testutil.NewDefault().ParentCycle(3))
	problems := tr.Validate()
	if got := kinds(problems); got != "missing_root,parent_cycle" {
		t.Fatalf("kinds = %s", got)
	}
	cycle := problems[1]
	if strings.Join(cycle.NodeIDs, ",") != "n0,n1,n2" {
		t.Errorf("cycle ids = %v", cycle.NodeIDs)
	}
	if cycle.Message != "parent cycle among n0, n1, n2" {
		t.Errorf("message = %q", cycle.Message)
	}
}

func TestProblemJSON(t *testing.T) {
	b, err := json.Marshal(tree.Problem{Kind: tree.ProblemCycle, Severity: tree.SeverityError, NodeIDs: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"severity":"error"`) {
		t.Errorf("severity not encoded by name: %s", b)
	}
}
