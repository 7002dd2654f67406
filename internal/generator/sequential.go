package generator

import (
	"context"

	"raceloom/internal/engine"
	"raceloom/internal/raceerr"
	"raceloom/internal/trace"
)

// Sequential runs the DFS or BFS strategy: a single work list, no
// batch/shard step, one engine call per cache miss. Both orders share the
// cache and transition semantics with ParallelBFS and so enumerate the
// same set of traces (only discovery order differs).
func Sequential(ctx context.Context, strategy string, tree *trace.Tree, root frontierEntry, eng engine.Engine, cache *Cache) (Result, error) {
	var wl workList[frontierEntry]
	switch strategy {
	case StrategyDFS:
		wl = newStack[frontierEntry]()
	case StrategyBFS:
		wl = newQueue[frontierEntry]()
	default:
		return Result{}, raceerr.NewEngineError("unknown sequential strategy %q", strategy)
	}
	wl.Push(root)

	calls := 0
	for wl.Len() > 0 {
		entry, _ := wl.Pop()
		if entry.depthRemaining <= 0 {
			continue
		}

		outputs, calledEngine, err := resolve(ctx, eng, cache, entry)
		if err != nil {
			return Result{}, err
		}
		if calledEngine {
			calls++
		}

		next, err := expandOne(tree, entry, outputs)
		if err != nil {
			return Result{}, err
		}
		for _, e := range next {
			wl.Push(e)
		}
	}

	return Result{Tree: tree, EngineCalls: calls, Cache: cache}, nil
}
