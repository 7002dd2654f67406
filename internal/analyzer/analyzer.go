// Package analyzer implements the trace analyzer: for each trace, it finds
// concurrent (vector-clock-incomparable) transition pairs and dispatches
// them to the race-handler table to classify at most one harmful race per
// trace.
package analyzer

import (
	"context"
	"sort"
	"strings"

	"raceloom/internal/model"
	"raceloom/internal/oracle"
	"raceloom/internal/race"
	"raceloom/internal/racecheck"
	"raceloom/internal/raceerr"
	"raceloom/internal/trace"
	"raceloom/internal/transition"
	"raceloom/internal/vclock"
)

// SkippedCounts tallies race-kind candidates that were not reported as
// races. SW_SW candidates are counted without being dispatched to a
// handler; kinds a caller lists in skipKinds are counted after their
// handler has classified them, whatever the verdict.
type SkippedCounts map[race.Kind]int

// Result is the outcome of analyzing one trace.
type Result struct {
	Race    *race.Race // nil if no harmful race was found
	Skipped SkippedCounts
}

// Analyze validates trace nodes against meta, then searches for the first
// incomparable transition pair that a race handler classifies as harmful,
// per spec §4.6. Returns a nil Race (and no error) when no harmful race is
// found — no race file should be written in that case.
func Analyze(
	ctx context.Context,
	nodes []trace.Node,
	meta model.Metadata,
	orc oracle.Oracle,
	templates map[race.Kind]string,
	skipKinds map[race.Kind]bool,
) (Result, error) {
	result := Result{Skipped: SkippedCounts{}}

	if err := validate(nodes, meta); err != nil {
		return Result{}, err
	}

	transitionStrings := make([]string, len(nodes))
	vcs := make([]vclock.Matrix, len(nodes))
	for i, n := range nodes {
		transitionStrings[i] = n.Transition.String()
		vcs[i] = n.VC
	}

	lastNode := map[int]int{}

	for i, n := range nodes {
		src, ok := n.Transition.Source()
		if !ok {
			if i != 0 {
				return Result{}, raceerr.NewAnalyzerError("node %d has no resolvable source element mid-trace", i)
			}
			continue
		}
		lastNode[src] = i

		var others []int
		for e2 := range lastNode {
			if e2 != src {
				others = append(others, e2)
			}
		}
		sort.Ints(others)

		for _, e2 := range others {
			j := lastNode[e2]
			if !incomparable(nodes[i].VC[src], nodes[j].VC[e2], src, e2) {
				continue
			}

			if isProc(nodes[i]) && isProc(nodes[j]) {
				result.Skipped[race.KindSWSW]++
				continue
			}

			verdict, ok, err := racecheck.Dispatch(ctx, racecheck.Nodes(nodes), i, j, meta, orc, templates)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
			if skipKinds[verdict.Kind] {
				result.Skipped[verdict.Kind]++
				continue
			}
			if !verdict.Harmful {
				continue
			}

			result.Race = &race.Race{
				Kind:  verdict.Kind,
				Trace: transitionStrings,
				VCs:   vcs,
				RacingNodes: []race.RacingNode{
					{NodePos: i, ElementPos: src, ReconstructedPolicy: verdict.Policies[0]},
					{NodePos: j, ElementPos: e2, ReconstructedPolicy: verdict.Policies[1]},
				},
			}
			return result, nil
		}
	}

	return result, nil
}

// isProc reports whether n's transition is a packet-processing transition.
func isProc(n trace.Node) bool {
	return strings.HasPrefix(n.Transition.String(), "proc(")
}

// incomparable implements spec §4.6's incomparability predicate:
// vc1 is e1's clock row, vc2 is e2's clock row (e1 == src, the newly
// observed element; e2 the element being compared against); the predicate
// only examines what each row records about itself and the other element.
func incomparable(vc1, vc2 []int, e1, e2 int) bool {
	leHolds := vc1[e1] <= vc2[e1] && vc1[e2] <= vc2[e2]
	geHolds := vc1[e1] >= vc2[e1] && vc1[e2] >= vc2[e2]
	return !leHolds && !geHolds
}

func validate(nodes []trace.Node, meta model.Metadata) error {
	n := len(meta)
	for i, node := range nodes {
		if len(node.VC) != n {
			return raceerr.NewAnalyzerError("node %d: vector clock has %d rows, expected %d", i, len(node.VC), n)
		}
		for _, row := range node.VC {
			if len(row) != n {
				return raceerr.NewAnalyzerError("node %d: vector clock row has %d entries, expected %d", i, len(row), n)
			}
		}
		if src, ok := node.Transition.Source(); ok {
			if src < 0 || src >= n {
				return raceerr.NewAnalyzerError("node %d: source element %d out of bounds", i, src)
			}
		} else if i != 0 {
			return raceerr.NewAnalyzerError("node %d: transition has no source mid-trace", i)
		}
		if r, ok := node.Transition.(transition.Rcfg); ok {
			if r.SrcPos < 0 || r.SrcPos >= n {
				return raceerr.NewAnalyzerError("node %d: reconfiguration source element %d out of bounds", i, r.SrcPos)
			}
			if r.DstPos < 0 || r.DstPos >= n {
				return raceerr.NewAnalyzerError("node %d: reconfiguration destination element %d out of bounds", i, r.DstPos)
			}
		}
	}
	return nil
}
