// Package racecheck implements the race-handler dispatch table and the
// network-policy reconstruction it relies on: given two trace positions
// whose vector clocks are incomparable, decide whether the pair is a
// harmful race and, if so, of which kind.
package racecheck

import (
	"context"
	"strings"

	"raceloom/internal/model"
	"raceloom/internal/oracle"
	"raceloom/internal/race"
	"raceloom/internal/raceerr"
	"raceloom/internal/trace"
	"raceloom/internal/transition"
)

// Nodes is the minimal trace view a handler needs: the node sequence and
// its parsed transitions, indexed by trace position (not tree id).
type Nodes []trace.Node

// elementIsActiveInBetween scans strict-interior positions (min(i,j),
// max(i,j)) for any transition whose source is e or that targets e.
func elementIsActiveInBetween(nodes Nodes, i, j, e int) bool {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	for pos := lo + 1; pos < hi; pos++ {
		tr := nodes[pos].Transition
		if src, ok := tr.Source(); ok && src == e {
			return true
		}
		if tr.TargetsElement(e) {
			return true
		}
	}
	return false
}

// elementIsRcfgTargetInBetween scans strict-interior positions for
// reconfigurations whose destination is e.
func elementIsRcfgTargetInBetween(nodes Nodes, i, j, e int) bool {
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	for pos := lo + 1; pos < hi; pos++ {
		if r, ok := nodes[pos].Transition.(transition.Rcfg); ok && r.DstPos == e {
			return true
		}
	}
	return false
}

// ReconstructPolicy walks nodes[0:end) applying every reconfiguration that
// targets switchPos, resolving which inner flow table slot each rcfg
// updates by matching its channel against meta's channel lists, overlays
// candidate onto the slot its own channel resolves to, then builds the
// aggregated network policy (F1+...+Fk)·L·((F1+...+Fk)·L)*. A switch with
// no flow tables reconstructs to "0" (drop).
func ReconstructPolicy(nodes Nodes, end int, switchPos int, candidate transition.Rcfg, meta model.Metadata) (string, error) {
	if switchPos < 0 || switchPos >= len(meta) {
		return "", raceerr.NewAnalyzerError("reconstructPolicy: switch position %d out of bounds", switchPos)
	}
	elem := meta[switchPos]
	tables := append([]string(nil), elem.InnerFlowTables...)

	for pos := 0; pos < end && pos < len(nodes); pos++ {
		r, ok := nodes[pos].Transition.(transition.Rcfg)
		if !ok || r.DstPos != switchPos {
			continue
		}
		if idx, ok := elem.InnerIndexForChannel(r.Channel); ok {
			tables[idx] = r.PolicyStr
		}
	}
	if idx, ok := elem.InnerIndexForChannel(candidate.Channel); ok {
		tables[idx] = candidate.PolicyStr
	}

	if len(tables) == 0 {
		return "0", nil
	}
	disjunction := "(" + strings.Join(tables, "+") + ")"
	return disjunction + "·" + elem.Link + "·(" + disjunction + "·" + elem.Link + ")*", nil
}

// Verdict is the outcome of dispatching a race candidate.
type Verdict struct {
	Harmful    bool
	Kind       race.Kind
	Policies   [2]string // reconstructed policies, in (i, j) argument order
}

// Dispatch evaluates the candidate pair (i, j) — already known to have
// incomparable vector clocks — against the race-handler table and returns
// a verdict, or ok=false if no handler applies (unrecognized variant
// combination, or both transitions are packet processing — SW_SW is always
// skipped by the caller before dispatch, not classified here).
func Dispatch(ctx context.Context, nodes Nodes, i, j int, meta model.Metadata, orc oracle.Oracle, templates map[race.Kind]string) (v Verdict, ok bool, err error) {
	ti, tj := nodes[i].Transition, nodes[j].Transition

	switch a := ti.(type) {
	case transition.PktProc:
		switch b := tj.(type) {
		case transition.Rcfg:
			return dispatchCTSW(ctx, nodes, j, i, b, a, meta, orc, templates, true)
		}
	case transition.Rcfg:
		switch b := tj.(type) {
		case transition.PktProc:
			return dispatchCTSW(ctx, nodes, i, j, a, b, meta, orc, templates, false)
		case transition.Rcfg:
			return dispatchRcfgRcfg(ctx, nodes, i, j, a, b, meta, orc, templates)
		}
	}
	return Verdict{}, false, nil
}

// dispatchCTSW handles the CT_SW candidate where rcfgPos carries the
// reconfiguration and procPos carries the packet processing. swapped
// indicates the caller passed (proc, rcfg) rather than (rcfg, proc), so the
// output policies are swapped back to match the original argument order.
func dispatchCTSW(
	ctx context.Context,
	nodes Nodes,
	rcfgPos, procPos int,
	rcfg transition.Rcfg,
	proc transition.PktProc,
	meta model.Metadata,
	orc oracle.Oracle,
	templates map[race.Kind]string,
	swapped bool,
) (Verdict, bool, error) {
	if rcfg.DstPos != proc.SwPos {
		return Verdict{}, false, nil
	}
	srcElem := meta[rcfg.SrcPos]
	if srcElem.Kind != model.KindController {
		return Verdict{}, false, nil
	}
	if elementIsActiveInBetween(nodes, rcfgPos, procPos, proc.SwPos) {
		return Verdict{}, false, nil
	}

	end := rcfgPos
	if procPos > end {
		end = procPos
	}
	reconstructed, err := ReconstructPolicy(nodes, end, proc.SwPos, rcfg, meta)
	if err != nil {
		return Verdict{}, false, err
	}

	template := templates[race.KindCTSW]
	left, err := orc.PropertyHolds(ctx, template, reconstructed)
	if err != nil {
		return Verdict{}, false, err
	}
	right, err := orc.PropertyHolds(ctx, template, proc.PolicyStr)
	if err != nil {
		return Verdict{}, false, err
	}

	v := Verdict{Harmful: left != right, Kind: race.KindCTSW}
	if swapped {
		v.Policies = [2]string{proc.PolicyStr, reconstructed}
	} else {
		v.Policies = [2]string{reconstructed, proc.PolicyStr}
	}
	return v, true, nil
}

// dispatchRcfgRcfg handles both CT_SW_CT and CT_CT_SW, which share the
// (Rcfg, Rcfg) transition-type pair but differ in structural prerequisites.
func dispatchRcfgRcfg(
	ctx context.Context,
	nodes Nodes,
	i, j int,
	a, b transition.Rcfg,
	meta model.Metadata,
	orc oracle.Oracle,
	templates map[race.Kind]string,
) (Verdict, bool, error) {
	if v, ok, err := tryCTSWCT(ctx, nodes, i, j, a, b, meta, orc, templates); ok || err != nil {
		return v, ok, err
	}
	return tryCTCTSW(ctx, nodes, i, j, a, b, meta, orc, templates)
}

func tryCTSWCT(
	ctx context.Context,
	nodes Nodes,
	i, j int,
	a, b transition.Rcfg,
	meta model.Metadata,
	orc oracle.Oracle,
	templates map[race.Kind]string,
) (Verdict, bool, error) {
	if a.DstPos != b.DstPos {
		return Verdict{}, false, nil
	}
	if meta[a.SrcPos].Kind != model.KindController || meta[b.SrcPos].Kind != model.KindController {
		return Verdict{}, false, nil
	}
	if elementIsActiveInBetween(nodes, i, j, a.SrcPos) {
		return Verdict{}, false, nil
	}
	if elementIsRcfgTargetInBetween(nodes, i, j, a.DstPos) {
		return Verdict{}, false, nil
	}

	end := i
	if j > end {
		end = j
	}
	policyA, err := ReconstructPolicy(nodes, end, a.DstPos, a, meta)
	if err != nil {
		return Verdict{}, false, err
	}
	policyB, err := ReconstructPolicy(nodes, end, b.DstPos, b, meta)
	if err != nil {
		return Verdict{}, false, err
	}

	template := templates[race.KindCTSWCT]
	left, err := orc.PropertyHolds(ctx, template, policyA)
	if err != nil {
		return Verdict{}, false, err
	}
	right, err := orc.PropertyHolds(ctx, template, policyB)
	if err != nil {
		return Verdict{}, false, err
	}

	return Verdict{
		Harmful:  left != right,
		Kind:     race.KindCTSWCT,
		Policies: [2]string{policyA, policyB},
	}, true, nil
}

func tryCTCTSW(
	ctx context.Context,
	nodes Nodes,
	i, j int,
	a, b transition.Rcfg,
	meta model.Metadata,
	orc oracle.Oracle,
	templates map[race.Kind]string,
) (Verdict, bool, error) {
	earlier, later, swapped := a, b, false
	earlierPos, laterPos := i, j
	if j < i {
		earlier, later = b, a
		earlierPos, laterPos = j, i
		swapped = true
	}

	// earlier targets a switch; later targets the earlier's source
	// controller (a reconfiguration-of-a-reconfiguration).
	if meta[earlier.DstPos].Kind != model.KindSwitch {
		return Verdict{}, false, nil
	}
	if later.DstPos != earlier.SrcPos {
		return Verdict{}, false, nil
	}

	if elementIsActiveInBetween(nodes, earlierPos, laterPos, earlier.SrcPos) {
		return Verdict{}, false, nil
	}
	if elementIsRcfgTargetInBetween(nodes, earlierPos, laterPos, earlier.DstPos) {
		return Verdict{}, false, nil
	}

	end := laterPos
	switchPos := earlier.DstPos
	// Hypothetical policy if the earlier rcfg happens as scheduled.
	policyBefore, err := ReconstructPolicy(nodes, end, switchPos, earlier, meta)
	if err != nil {
		return Verdict{}, false, err
	}
	// Hypothetical policy if the later rcfg (reconfiguring the controller)
	// takes effect before the earlier one reaches the switch: the earlier
	// rcfg now carries the later rcfg's policy as its payload.
	reRouted := earlier
	reRouted.PolicyStr = later.PolicyStr
	policyAfter, err := ReconstructPolicy(nodes, end, switchPos, reRouted, meta)
	if err != nil {
		return Verdict{}, false, err
	}

	template := templates[race.KindCTCTSW]
	left, err := orc.PropertyHolds(ctx, template, policyBefore)
	if err != nil {
		return Verdict{}, false, err
	}
	right, err := orc.PropertyHolds(ctx, template, policyAfter)
	if err != nil {
		return Verdict{}, false, err
	}

	v := Verdict{Harmful: left != right, Kind: race.KindCTCTSW}
	if swapped {
		v.Policies = [2]string{policyAfter, policyBefore}
	} else {
		v.Policies = [2]string{policyBefore, policyAfter}
	}
	return v, true, nil
}
