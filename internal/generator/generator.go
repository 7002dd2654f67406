// Package generator implements the trace generator: three strategies
// (sequential DFS, sequential BFS, parallel BFS) that unfold a model's
// parallel composition into a trace tree, sharing one expansion cache and
// one transition-parsing/VC-update path so all three produce identical
// trace sets for the same (model, depth) per spec testable property 9.
package generator

import (
	"context"

	"raceloom/internal/engine"
	"raceloom/internal/raceerr"
	"raceloom/internal/trace"
	"raceloom/internal/transition"
	"raceloom/internal/vclock"
)

// Strategy names recognized by configuration, per spec §6.
const (
	StrategyDFS  = "dfs"
	StrategyBFS  = "bfs"
	StrategyPBFS = "pbfs"
)

const prevKindNone = "none"

// frontierEntry is one pending expansion: the tree index of the node
// already inserted for this frontier position, the rewriting-engine
// expression it denotes, the previous transition's variant kind (the
// sentinel prevKindNone for the root), and the depth budget remaining.
type frontierEntry struct {
	nodeIdx        int
	expression     string
	prevKind       string
	depthRemaining int
}

func (e frontierEntry) key() cacheKey {
	return cacheKey{Expression: e.expression, PrevKind: e.prevKind}
}

// Result bundles the built tree with the stats the caller needs to report.
type Result struct {
	Tree        *trace.Tree
	EngineCalls int
	Cache       *Cache
}

// expandOne materializes every child node for entry's successors (already
// resolved, from cache or a fresh engine call) and returns the next-layer
// frontier entries.
func expandOne(tree *trace.Tree, entry frontierEntry, outputs []engine.Output) ([]frontierEntry, error) {
	parentNode := tree.Node(entry.nodeIdx)

	var next []frontierEntry
	for _, out := range outputs {
		tr, err := transition.Parse(out.Label)
		if err != nil {
			// Fallback per spec §4.5/§7: an unparseable label becomes an
			// Empty transition with no VC update, not a fatal error.
			tr = transition.Empty{}
		}

		childVC, err := tr.UpdateVC(parentNode.VC)
		if err != nil {
			return nil, raceerr.NewAnalyzerError("transition update failed for %q: %v", out.Label, err)
		}

		childIdx, err := tree.AddNode(trace.Node{Transition: tr, VC: childVC}, entry.nodeIdx)
		if err != nil {
			return nil, err
		}

		if entry.depthRemaining > 1 {
			next = append(next, frontierEntry{
				nodeIdx:        childIdx,
				expression:     out.SuccessorExpression,
				prevKind:       out.SuccessorKind,
				depthRemaining: entry.depthRemaining - 1,
			})
		}
	}
	return next, nil
}

// resolve returns entry's successor outputs, consulting cache before
// submitting a single-input batch to eng.
func resolve(ctx context.Context, eng engine.Engine, cache *Cache, entry frontierEntry) ([]engine.Output, bool, error) {
	if outs, ok := cache.Get(entry.key()); ok {
		return outs, false, nil
	}
	outs, err := eng.Submit(ctx, []engine.Input{{ID: 0, PrevKind: entry.prevKind, Expression: entry.expression}}, 1)
	if err != nil {
		return nil, true, err
	}
	cache.Put(entry.key(), outs)
	return outs, true, nil
}

// NewRoot builds a fresh tree with a single root node (Empty transition,
// zero VC matrix of size elementCount) and the corresponding root frontier
// entry, budgeted for depth more transitions.
func NewRoot(elementCount int, rootExpression string, depth int, policies *trace.PolicyTable) (*trace.Tree, frontierEntry) {
	tree, rootIdx := trace.NewTree(trace.Node{Transition: transition.Empty{}, VC: vclock.New(elementCount)}, policies)
	return tree, frontierEntry{nodeIdx: rootIdx, expression: rootExpression, prevKind: prevKindNone, depthRemaining: depth}
}
