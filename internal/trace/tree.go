package trace

import (
	"fmt"
	"sync"

	"raceloom/internal/transition"
)

// noParent marks the root entry's parent index.
const noParent = -1

// entry pairs a node with its parent index in the tree's backing slice.
type entry struct {
	node      Node
	parentIdx int
}

// Tree is the persistent, parent-indexed trace tree: an append-only slice
// of (node, parentIndex) pairs with an incrementally maintained leaf set.
// It is built during generation, then frozen; after that point only the
// analyzer's racing-link annotations mutate it.
type Tree struct {
	mu       sync.RWMutex
	entries  []entry
	isLeaf   []bool
	policies *PolicyTable
}

// NewTree creates a tree with a single root node (Empty transition, zero
// VC) and returns it along with the root's index (always 0).
func NewTree(root Node, policies *PolicyTable) (*Tree, int) {
	t := &Tree{
		entries:  []entry{{node: root, parentIdx: noParent}},
		isLeaf:   []bool{true},
		policies: policies,
	}
	return t, 0
}

// AddNode appends node as a child of parentIdx, substituting any policy
// placeholder embedded in its transition via the tree's policy table, and
// returns the new node's index. Returns an error if parentIdx is unknown.
func (t *Tree) AddNode(node Node, parentIdx int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parentIdx < 0 || parentIdx >= len(t.entries) {
		return 0, fmt.Errorf("trace: AddNode: unknown parent index %d", parentIdx)
	}

	node.Transition = substitutePolicy(node.Transition, t.policies)
	node.ID = len(t.entries)

	t.entries = append(t.entries, entry{node: node, parentIdx: parentIdx})
	t.isLeaf = append(t.isLeaf, true)
	t.isLeaf[parentIdx] = false
	return node.ID, nil
}

func substitutePolicy(tr transition.Transition, table *PolicyTable) transition.Transition {
	if table == nil {
		return tr
	}
	switch v := tr.(type) {
	case transition.PktProc:
		v.PolicyStr = table.Substitute(v.PolicyStr)
		return v
	case transition.Rcfg:
		v.PolicyStr = table.Substitute(v.PolicyStr)
		return v
	default:
		return tr
	}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Node returns a copy of the node at idx.
func (t *Tree) Node(idx int) Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[idx].node
}

// Parent returns the parent index of idx, or noParent for the root.
func (t *Tree) Parent(idx int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[idx].parentIdx
}

// AnnotateRacing records a symmetric racing link between the nodes at a and
// b, so future trace discovery can short-circuit duplicates (spec §4.8, §9).
func (t *Tree) AnnotateRacing(a, b int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[a].node.AddRacingLink(b)
	t.entries[b].node.AddRacingLink(a)
}

// Leaves returns the indices of every leaf node.
func (t *Tree) Leaves() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []int
	for i, leaf := range t.isLeaf {
		if leaf {
			out = append(out, i)
		}
	}
	return out
}

// Trace is one root-to-leaf path of node indices, root first.
type Trace []int

// Nodes resolves idx to a snapshot of the underlying nodes, root first.
func (t *Tree) Nodes(tr Trace) []Node {
	out := make([]Node, len(tr))
	for i, idx := range tr {
		out[i] = t.Node(idx)
	}
	return out
}

// Traces walks from each leaf back to the root and reverses, yielding every
// root-to-leaf path in leaf-discovery order. Depth 0 (a single root, no
// other nodes) yields no traces, per spec testable property 10.
func (t *Tree) Traces() []Trace {
	t.mu.RLock()
	leaves := make([]int, 0)
	for i, leaf := range t.isLeaf {
		if leaf && i != 0 {
			leaves = append(leaves, i)
		}
	}
	snapshot := append([]entry(nil), t.entries...)
	t.mu.RUnlock()

	if len(t.entries) <= 1 {
		return nil
	}

	out := make([]Trace, 0, len(leaves))
	for _, leaf := range leaves {
		path := []int{}
		for cur := leaf; cur != noParent; cur = snapshot[cur].parentIdx {
			path = append(path, cur)
		}
		// reverse in place
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		out = append(out, path)
	}
	return out
}
