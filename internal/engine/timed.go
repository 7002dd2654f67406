package engine

import (
	"context"
	"time"

	"raceloom/internal/atomicfloat"
)

// TimedEngine wraps an Engine and accumulates the total wall time spent in
// Submit, grounded on the same exec-time decorator idiom used for the
// oracle's memoized timing (internal/oracle.MemoOracle), so the generator's
// engine time is reported the same way the oracle's is.
type TimedEngine struct {
	inner    Engine
	execTime *atomicfloat.Float64
}

// NewTimedEngine wraps inner, whose Submit time will be accumulated and
// readable via ElapsedSeconds.
func NewTimedEngine(inner Engine) *TimedEngine {
	return &TimedEngine{inner: inner, execTime: atomicfloat.New(0)}
}

func (e *TimedEngine) Submit(ctx context.Context, batch []Input, shards int) ([]Output, error) {
	start := time.Now()
	outputs, err := e.inner.Submit(ctx, batch, shards)
	e.execTime.Add(time.Since(start).Seconds())
	return outputs, err
}

// ElapsedSeconds reports the cumulative wall time spent inside Submit.
func (e *TimedEngine) ElapsedSeconds() float64 {
	return e.execTime.Load()
}
