package tree

import "sort"

// SortedLeaves returns the leaves ordered by message create_time, oldest
// first. Unknown times sort as 0; ties keep document order.
func SortedLeaves(t *Tree) []string {
	leaves := t.Leaves()
	sort.SliceStable(leaves, func(i, j int) bool {
		return leafTime(t, leaves[i]) < leafTime(t, leaves[j])
	})
	return leaves
}

func leafTime(t *Tree, id string) float64 {
	n, ok := t.Node(id)
	if !ok || n.Message == nil {
		return 0
	}
	return n.Message.CreateTime.SortKey()
}

// SelectLeaf picks the initially active leaf: declared when it names a leaf
// of t, otherwise the latest leaf. It reports false when t has no leaves.
func SelectLeaf(t *Tree, declared string) (string, bool) {
	if declared != "" && t.IsLeaf(declared) {
		return declared, true
	}
	leaves := SortedLeaves(t)
	if len(leaves) == 0 {
		return "", false
	}
	return leaves[len(leaves)-1], true
}
