// Package transition implements the transition sum type: packet processing
// at a switch, reconfiguration of a switch's policy by a controller over a
// channel, and the Empty placeholder used at a trace's root. Each variant
// knows how to serialize to, and parse from, its canonical string form and
// how to advance a vector clock.
package transition

import (
	"fmt"
	"regexp"
	"strconv"

	"raceloom/internal/raceerr"
	"raceloom/internal/vclock"
)

// Transition is the common interface implemented by PktProc, Rcfg, and Empty.
type Transition interface {
	fmt.Stringer
	// Source returns the position of the element that originated this
	// transition, or ok=false for Empty.
	Source() (pos int, ok bool)
	// TargetsElement reports whether pos is modified by this transition:
	// the switch position for PktProc, either endpoint for Rcfg.
	TargetsElement(pos int) bool
	// UpdateVC applies this transition's effect to vc, returning a new
	// matrix; vc itself is never mutated.
	UpdateVC(vc vclock.Matrix) (vclock.Matrix, error)
	// Policy returns the policy string carried by this transition, or ""
	// for Empty.
	Policy() string
}

// Empty is the root placeholder transition: it carries no policy, targets
// no element, and leaves the vector clock unchanged.
type Empty struct{}

func (Empty) String() string { return "" }
func (Empty) Source() (int, bool) { return 0, false }
func (Empty) TargetsElement(int) bool { return false }
func (Empty) Policy() string { return "" }
func (Empty) UpdateVC(vc vclock.Matrix) (vclock.Matrix, error) { return vc, nil }

// PktProc is a packet-processing transition at switch position SwPos under
// policy Policy.
type PktProc struct {
	PolicyStr string
	SwPos     int
}

func (t PktProc) String() string { return fmt.Sprintf("proc('%s',%d)", t.PolicyStr, t.SwPos) }
func (t PktProc) Source() (int, bool) { return t.SwPos, true }
func (t PktProc) TargetsElement(pos int) bool { return t.SwPos == pos }
func (t PktProc) Policy() string { return t.PolicyStr }
func (t PktProc) UpdateVC(vc vclock.Matrix) (vclock.Matrix, error) {
	return vclock.Increment(vc, t.SwPos)
}

// Rcfg is a reconfiguration transition sending Policy from SrcPos to DstPos
// over Channel.
type Rcfg struct {
	Channel   string
	PolicyStr string
	SrcPos    int
	DstPos    int
}

func (t Rcfg) String() string {
	return fmt.Sprintf("rcfg(%s, '%s', %d, %d)", t.Channel, t.PolicyStr, t.SrcPos, t.DstPos)
}
func (t Rcfg) Source() (int, bool) { return t.SrcPos, true }
func (t Rcfg) TargetsElement(pos int) bool { return t.SrcPos == pos || t.DstPos == pos }
func (t Rcfg) Policy() string { return t.PolicyStr }
func (t Rcfg) UpdateVC(vc vclock.Matrix) (vclock.Matrix, error) {
	return vclock.Transfer(vc, t.SrcPos, t.DstPos)
}

var (
	procPattern = regexp.MustCompile(`^proc\('([^']*)',([0-9]+)\)$`)
	rcfgPattern = regexp.MustCompile(`^rcfg\(([^,]*), '([^']*)', ([0-9]+), ([0-9]+)\)$`)
)

// Parse parses a canonical transition label into its Transition. An empty
// string or any string not matching the proc/rcfg grammar yields Empty,
// matching the original tool's fallback behavior for unrecognized labels;
// a string that begins with "proc"/"rcfg" but fails the stricter grammar
// (negative position, src == dst) is a ParseError.
func Parse(s string) (Transition, error) {
	switch {
	case len(s) >= 4 && s[:4] == "proc":
		m := procPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, raceerr.NewParseError("%q is not a valid packet processing transition", s)
		}
		pos, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, raceerr.NewParseError("%q has an invalid switch position: %v", s, err)
		}
		return PktProc{PolicyStr: m[1], SwPos: pos}, nil
	case len(s) >= 4 && s[:4] == "rcfg":
		m := rcfgPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, raceerr.NewParseError("%q is not a valid reconfiguration transition", s)
		}
		src, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, raceerr.NewParseError("%q has an invalid source position: %v", s, err)
		}
		dst, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, raceerr.NewParseError("%q has an invalid destination position: %v", s, err)
		}
		if src == dst {
			return nil, raceerr.NewParseError("%q has equal source and destination positions (%d)", s, src)
		}
		return Rcfg{Channel: m[1], PolicyStr: m[2], SrcPos: src, DstPos: dst}, nil
	default:
		return Empty{}, nil
	}
}
