package oracle

import (
	"context"
	"sync"
	"time"

	"raceloom/internal/atomicfloat"
)

type pairKey struct{ a, b string }

// MemoOracle wraps any Oracle with per-method memoization, one map each for
// AreNotEquivalent and PropertyHolds, plus hit/miss/elapsed-time counters —
// grounded on the original tool's bool_cache/exec_time decorators.
type MemoOracle struct {
	inner Oracle

	equivMu    sync.RWMutex
	equivCache map[pairKey]bool

	holdsMu    sync.RWMutex
	holdsCache map[pairKey]bool

	execTime *atomicfloat.Float64
	hits     *atomicfloat.Float64
	misses   *atomicfloat.Float64
}

// NewMemoOracle wraps inner with memoization.
func NewMemoOracle(inner Oracle) *MemoOracle {
	return &MemoOracle{
		inner:      inner,
		equivCache: map[pairKey]bool{},
		holdsCache: map[pairKey]bool{},
		execTime:   atomicfloat.New(0),
		hits:       atomicfloat.New(0),
		misses:     atomicfloat.New(0),
	}
}

func (m *MemoOracle) AreNotEquivalent(ctx context.Context, a, b string) (bool, error) {
	key := pairKey{a, b}

	m.equivMu.RLock()
	v, ok := m.equivCache[key]
	m.equivMu.RUnlock()
	if ok {
		m.hits.Add(1)
		return v, nil
	}

	m.misses.Add(1)
	start := time.Now()
	result, err := m.inner.AreNotEquivalent(ctx, a, b)
	m.execTime.Add(time.Since(start).Seconds())
	if err != nil {
		return false, err
	}

	m.equivMu.Lock()
	m.equivCache[key] = result
	m.equivMu.Unlock()
	return result, nil
}

func (m *MemoOracle) PropertyHolds(ctx context.Context, template, policy string) (bool, error) {
	key := pairKey{template, policy}

	m.holdsMu.RLock()
	v, ok := m.holdsCache[key]
	m.holdsMu.RUnlock()
	if ok {
		m.hits.Add(1)
		return v, nil
	}

	m.misses.Add(1)
	start := time.Now()
	result, err := m.inner.PropertyHolds(ctx, template, policy)
	m.execTime.Add(time.Since(start).Seconds())
	if err != nil {
		return false, err
	}

	m.holdsMu.Lock()
	m.holdsCache[key] = result
	m.holdsMu.Unlock()
	return result, nil
}

func (m *MemoOracle) Stats() Stats {
	return Stats{
		TotalExecTimeSeconds: m.execTime.Load(),
		CacheHits:            int64(m.hits.Load()),
		CacheMisses:          int64(m.misses.Load()),
	}
}
