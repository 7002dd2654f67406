// Package race defines the race record, its four kinds, and the aggregator
// that deduplicates harmful races discovered across many traces.
package race

import (
	"sort"
	"sync"

	"raceloom/internal/vclock"
)

// Kind is one of the four race classifications. SW_SW is always skipped;
// the other three are always dispatched to the oracle.
type Kind string

const (
	KindSWSW   Kind = "SW-SW"
	KindCTSW   Kind = "CT->SW"
	KindCTSWCT Kind = "CT->SW<-CT"
	KindCTCTSW Kind = "CT->CT->SW"
)

// RacingNode is one of the (usually two) nodes participating in a race:
// its position in the trace, the element position it's attributed to, and
// the network policy reconstructed at that point.
type RacingNode struct {
	NodePos             int
	ElementPos          int
	ReconstructedPolicy string
}

// Race is one harmful race discovered in a trace.
type Race struct {
	Kind        Kind
	Trace       []string        // transition string forms, root-first
	VCs         []vclock.Matrix // vector clock at each trace position, root-first
	RacingNodes []RacingNode
}

// transitionKey is the dedup key: the transition strings at the race's
// racing-node positions, in position order.
func (r Race) transitionKey() string {
	positions := make([]int, len(r.RacingNodes))
	for i, rn := range r.RacingNodes {
		positions[i] = rn.NodePos
	}
	sort.Ints(positions)

	key := ""
	for _, p := range positions {
		if p >= 0 && p < len(r.Trace) {
			key += r.Trace[p] + "\x1f"
		}
	}
	return key
}

func (r Race) positionTuple() []int {
	positions := make([]int, len(r.RacingNodes))
	for i, rn := range r.RacingNodes {
		positions[i] = rn.NodePos
	}
	sort.Ints(positions)
	return positions
}

// lexLess reports whether a's sorted racing-node positions are
// lexicographically smaller than b's.
func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Aggregator deduplicates harmful races by their transition-string tuple,
// keeping the representative with lexicographically-earliest racing
// positions, per spec §4.8.
type Aggregator struct {
	mu      sync.Mutex
	byKey   map[string]Race
	order   []string // insertion order of keys, for stable output
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byKey: map[string]Race{}}
}

// Add records r, replacing any existing duplicate if r's racing positions
// are lexicographically earlier.
func (a *Aggregator) Add(r Race) {
	key := r.transitionKey()

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.byKey[key]
	if !ok {
		a.byKey[key] = r
		a.order = append(a.order, key)
		return
	}
	if lexLess(r.positionTuple(), existing.positionTuple()) {
		a.byKey[key] = r
	}
}

// Races returns all deduplicated races, in first-seen order.
func (a *Aggregator) Races() []Race {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Race, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, a.byKey[key])
	}
	return out
}

// Len reports the number of distinct races recorded so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byKey)
}
