package generator

import (
	"context"

	channerics "github.com/niceyeti/channerics/channels"

	"raceloom/internal/engine"
	"raceloom/internal/trace"
)

// shardResult is what one shard worker reports back to the coordinator.
type shardResult struct {
	outputs []engine.Output
	err     error
}

// missItem is one cache-miss key assigned a dense id for this layer's
// batched submission.
type missItem struct {
	key cacheKey
	id  int
}

// partition splits items as evenly as possible into n shards, grounded on
// the original tool's uniformSplit utility.
func partition(items []missItem, n int) [][]missItem {
	if n < 1 {
		n = 1
	}
	shards := make([][]missItem, n)
	for i, item := range items {
		shards[i%n] = append(shards[i%n], item)
	}
	return shards
}

// ParallelBFS runs the batched, sharded strategy: per layer, unique
// (expression, prevKind) keys are coalesced, cache misses are partitioned
// across shards workers and submitted to eng concurrently, their results
// fanned in via channerics.Merge, and the coordinator waits for every
// worker before building the next layer — the strict per-layer barrier
// required by spec §5.
func ParallelBFS(ctx context.Context, tree *trace.Tree, root frontierEntry, eng engine.Engine, cache *Cache, shards int) (Result, error) {
	currentLayer := []frontierEntry{root}
	calls := 0

	for len(currentLayer) > 0 {
		groups := map[cacheKey][]frontierEntry{}
		var order []cacheKey
		for _, e := range currentLayer {
			if e.depthRemaining <= 0 {
				continue
			}
			k := e.key()
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], e)
		}
		if len(order) == 0 {
			break
		}

		var misses []missItem
		for _, k := range order {
			if _, ok := cache.Get(k); ok {
				continue
			}
			misses = append(misses, missItem{key: k, id: len(misses)})
		}

		if len(misses) > 0 {
			byID, err := submitSharded(ctx, eng, misses, shards)
			if err != nil {
				return Result{}, err
			}
			calls++
			for _, m := range misses {
				cache.Put(m.key, byID[m.id])
			}
		}

		var nextLayer []frontierEntry
		for _, k := range order {
			outputs, _ := cache.Get(k)
			for _, e := range groups[k] {
				next, err := expandOne(tree, e, outputs)
				if err != nil {
					return Result{}, err
				}
				nextLayer = append(nextLayer, next...)
			}
		}
		currentLayer = nextLayer
	}

	return Result{Tree: tree, EngineCalls: calls, Cache: cache}, nil
}

// submitSharded partitions misses across shards workers, submits each
// shard to eng concurrently, and fans the results in before returning —
// the coordinator never proceeds to the next layer until every worker has
// reported, satisfying the layer barrier.
func submitSharded(ctx context.Context, eng engine.Engine, misses []missItem, shards int) (map[int][]engine.Output, error) {
	done := make(chan struct{})
	defer close(done)

	batches := partition(misses, shards)
	workers := make([]<-chan shardResult, 0, len(batches))
	for _, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		ch := make(chan shardResult, 1)
		go func(batch []missItem) {
			inputs := make([]engine.Input, len(batch))
			for i, m := range batch {
				inputs[i] = engine.Input{ID: m.id, PrevKind: m.key.PrevKind, Expression: m.key.Expression}
			}
			outs, err := eng.Submit(ctx, inputs, 1)
			defer close(ch)
			select {
			case ch <- shardResult{outputs: outs, err: err}:
			case <-done:
			}
		}(batch)
		workers = append(workers, ch)
	}

	byID := map[int][]engine.Output{}
	for r := range channerics.Merge(done, workers...) {
		if r.err != nil {
			return nil, r.err
		}
		for _, o := range r.outputs {
			byID[o.ID] = append(byID[o.ID], o)
		}
	}
	return byID, nil
}
