// Package engine defines the term-rewriting engine contract: a single
// batched call per generator layer, treated as an opaque coroutine-like
// service per spec §4.5/§6.
package engine

import "context"

// Input is one unit of work submitted to the engine: a dense id (unique
// within the batch), the previous transition's variant kind (or "none" for
// the root), and the expression to expand.
type Input struct {
	ID         int
	PrevKind   string
	Expression string
}

// Output is one successor the engine found for some Input.ID: the
// successor's transition variant kind, its canonical transition label, and
// the expression it rewrites to. Ordering of outputs sharing an ID is
// preserved and becomes child-insertion order in the trace tree.
type Output struct {
	ID                  int
	SuccessorKind       string
	Label               string
	SuccessorExpression string
}

// Engine is the narrow contract the generator depends on. Implementations
// may use threads, processes, or RPC; the generator only relies on the
// batch-in/batch-out contract and the uniform split into shards.
type Engine interface {
	// Submit expands every Input in batch, split across shards workers,
	// and returns every Output produced, grouped by input ID. If the
	// engine reports failure for any input, the whole call fails with a
	// fatal EngineError (see internal/raceerr) and no partial results are
	// returned.
	Submit(ctx context.Context, batch []Input, shards int) ([]Output, error)
}
