package tree

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Severity ranks a structural problem.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns "warning" or "error".
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProblemKind classifies a structural problem.
type ProblemKind string

const (
	ProblemMissingRoot    ProblemKind = "missing_root"
	ProblemMultipleRoots  ProblemKind = "multiple_roots"
	ProblemDanglingChild  ProblemKind = "dangling_child"
	ProblemDanglingParent ProblemKind = "dangling_parent"
	ProblemMismatch       ProblemKind = "child_parent_mismatch"
	ProblemCycle          ProblemKind = "parent_cycle"
)

// Problem is one structural defect of the mapping.
type Problem struct {
	Kind     ProblemKind `json:"kind"`
	Severity Severity    `json:"severity"`
	NodeIDs  []string    `json:"node_ids"`
	Message  string      `json:"message"`
}

// Validate checks the tree invariants: exactly one root, children and
// parent links that agree and resolve, and no parent cycles. The viewer
// works on trees that fail validation; this is for diagnostics.
func (t *Tree) Validate() []Problem {
	var problems []Problem

	var roots []string
	for _, id := range t.mapping.Keys() {
		n, _ := t.mapping.Get(id)
		if n.ParentNull {
			roots = append(roots, id)
		}
	}
	switch {
	case len(roots) == 0:
		problems = append(problems, Problem{
			Kind:     ProblemMissingRoot,
			Severity: SeverityError,
			Message:  "no node has a null parent",
		})
	case len(roots) > 1:
		problems = append(problems, Problem{
			Kind:     ProblemMultipleRoots,
			Severity: SeverityWarning,
			NodeIDs:  roots,
			Message:  fmt.Sprintf("%d nodes have a null parent; %q is used as root", len(roots), roots[0]),
		})
	}

	for _, id := range t.mapping.Keys() {
		n, _ := t.mapping.Get(id)
		for _, child := range n.Children {
			cn, ok := t.mapping.Get(child)
			if !ok {
				problems = append(problems, Problem{
					Kind:     ProblemDanglingChild,
					Severity: SeverityError,
					NodeIDs:  []string{id, child},
					Message:  fmt.Sprintf("%q lists unknown child %q", id, child),
				})
				continue
			}
			if !cn.HasParent || cn.Parent != id {
				problems = append(problems, Problem{
					Kind:     ProblemMismatch,
					Severity: SeverityWarning,
					NodeIDs:  []string{id, child},
					Message:  fmt.Sprintf("%q lists child %q whose parent is %q", id, child, cn.Parent),
				})
			}
		}
		if n.HasParent {
			if _, ok := t.mapping.Get(n.Parent); !ok {
				problems = append(problems, Problem{
					Kind:     ProblemDanglingParent,
					Severity: SeverityError,
					NodeIDs:  []string{id, n.Parent},
					Message:  fmt.Sprintf("%q has unknown parent %q", id, n.Parent),
				})
			}
		}
	}

	problems = append(problems, t.cycles()...)
	return problems
}

// cycles finds parent-link cycles as strongly connected components of the
// parent -> child graph.
func (t *Tree) cycles() []Problem {
	keys := t.mapping.Keys()
	index := make(map[string]int64, len(keys))
	g := simple.NewDirectedGraph()
	for i, id := range keys {
		index[id] = int64(i)
		g.AddNode(simple.Node(i))
	}

	var problems []Problem
	for _, id := range keys {
		n, _ := t.mapping.Get(id)
		if !n.HasParent {
			continue
		}
		if n.Parent == id {
			problems = append(problems, Problem{
				Kind:     ProblemCycle,
				Severity: SeverityError,
				NodeIDs:  []string{id},
				Message:  fmt.Sprintf("%q is its own parent", id),
			})
			continue
		}
		p, ok := index[n.Parent]
		if !ok {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(index[id])))
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, node := range scc {
			ids = append(ids, keys[node.ID()])
		}
		sort.Strings(ids)
		problems = append(problems, Problem{
			Kind:     ProblemCycle,
			Severity: SeverityError,
			NodeIDs:  ids,
			Message:  "parent cycle among " + strings.Join(ids, ", "),
		})
	}
	return problems
}

// HasErrors reports whether any problem is an error.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}
