// Package oracle defines the policy-equivalence oracle contract and two
// implementations: a subprocess adapter driving the KATch tool, and a
// memoizing decorator usable around any Oracle.
package oracle

import "context"

// Stats reports an oracle's cumulative performance, queryable per spec §6.
type Stats struct {
	TotalExecTimeSeconds float64
	CacheHits            int64
	CacheMisses          int64
}

// Oracle exposes the two pure boolean decisions the analysis core needs
// over opaque policy-algebra expressions. Implementations must raise an
// OracleError (see internal/raceerr) when a query cannot be decided.
type Oracle interface {
	// AreNotEquivalent reports whether a and b denote different
	// packet-mapping relations.
	AreNotEquivalent(ctx context.Context, a, b string) (bool, error)
	// PropertyHolds reports whether substituting policy into template
	// yields a valid formula under the oracle's decision procedure.
	PropertyHolds(ctx context.Context, template, policy string) (bool, error)
	// Stats returns a snapshot of this oracle's cumulative stats.
	Stats() Stats
}
