package tree

import (
	"slices"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/metrics"
)

// PathTo returns the node ids from the root down to leafID. The walk stops
// at a null parent, at an id missing from the mapping, or when an id repeats
// (a parent cycle), so it always terminates within Len steps. An unknown
// leafID yields an empty path.
func PathTo(t *Tree, leafID string) []string {
	defer metrics.Timer(metrics.PathResolve)()

	var path []string
	seen := make(map[string]bool)
	current := leafID
	for current != "" {
		n, ok := t.Node(current)
		if !ok {
			break
		}
		if seen[current] {
			debug.Log("tree: parent cycle at %q while resolving %q", current, leafID)
			break
		}
		seen[current] = true
		path = append(path, current)
		if !n.HasParent {
			break
		}
		current = n.Parent
	}
	slices.Reverse(path)
	return path
}
