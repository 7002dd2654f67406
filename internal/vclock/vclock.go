// Package vclock implements the vector-clock matrix used to order
// transitions across elements in a trace. All operations are pure: each
// returns a new matrix rather than mutating its argument, so a trace node
// can hold a reference to its vector clock without fear of a later node's
// update reaching backward through it.
package vclock

import "raceloom/internal/raceerr"

// Matrix is an N-by-N vector clock, one row per network element.
type Matrix [][]int

// New returns a zeroed N-by-N matrix.
func New(n int) Matrix {
	vc := make(Matrix, n)
	for i := range vc {
		vc[i] = make([]int, n)
	}
	return vc
}

func withinBounds(vc Matrix, pos int) bool {
	return pos >= 0 && pos < len(vc) && pos < len(vc[pos])
}

// Clone returns a deep copy of vc.
func Clone(vc Matrix) Matrix {
	out := make(Matrix, len(vc))
	for i, row := range vc {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Increment returns a copy of vc with row pos's diagonal entry incremented.
func Increment(vc Matrix, pos int) (Matrix, error) {
	if !withinBounds(vc, pos) {
		return nil, raceerr.NewParseError("vclock: increment: position %d out of bounds for size %d", pos, len(vc))
	}
	out := Clone(vc)
	out[pos][pos]++
	return out, nil
}

// ElementWiseMax returns the position-wise maximum of a and b, sized to the
// smaller of the two.
func ElementWiseMax(a, b []int) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if a[i] > b[i] {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

// Transfer returns a copy of vc reflecting a message send from srcPos to
// dstPos: src's own clock is incremented, dst's row becomes the element-wise
// max of the incremented src row and dst's prior row, then dst's own clock
// is incremented again.
func Transfer(vc Matrix, srcPos, dstPos int) (Matrix, error) {
	if srcPos == dstPos {
		return nil, raceerr.NewParseError("vclock: transfer: src and dst positions are equal (%d)", srcPos)
	}
	if !withinBounds(vc, srcPos) || !withinBounds(vc, dstPos) {
		return nil, raceerr.NewParseError("vclock: transfer: position out of bounds (src=%d dst=%d size=%d)", srcPos, dstPos, len(vc))
	}
	out := Clone(vc)
	out[srcPos][srcPos]++
	out[dstPos] = ElementWiseMax(out[srcPos], out[dstPos])
	out[dstPos][dstPos]++
	return out, nil
}

// Comparable reports whether a happens-before-or-equal b, b happens-before-
// or-equal a, or neither (concurrent). Two clocks are comparable unless
// each has a strictly greater entry than the other at some position.
func Comparable(a, b []int) bool {
	aGreater, bGreater := false, false
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case a[i] > b[i]:
			aGreater = true
		case b[i] > a[i]:
			bGreater = true
		}
		if aGreater && bGreater {
			return false
		}
	}
	return true
}
