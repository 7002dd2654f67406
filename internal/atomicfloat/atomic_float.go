// Package atomicfloat provides a lock-free float64 counter, used by the
// oracle memoization layer to accumulate decision timing stats without a
// mutex guarding every cache hit.
package atomicfloat

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Float64 encapsulates a float64 for non-locking atomic operations.
// No unsafe pointer derived here is held across more than a few lines,
// since the gc may relocate the backing variable once it believes the
// original pointer is no longer referenced.
type Float64 struct {
	val float64
}

// New wraps val for atomic access.
func New(val float64) *Float64 {
	return &Float64{val: val}
}

// Load atomically reads the float64, avoiding stale/dirty local copies.
func (af *Float64) Load() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(bits)
}

// Add atomically adds addend, retrying the CAS until it succeeds.
// Unlike a single-attempt CAS, accumulating stats counters has no
// meaningful "someone else changed it, give up" case, so this loops.
func (af *Float64) Add(addend float64) (newVal float64) {
	for {
		old := af.Load()
		newVal = old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&af.val)),
			math.Float64bits(old),
			math.Float64bits(newVal)) {
			return
		}
	}
}

// Set atomically sets val, returns true on success against the last-read value.
func (af *Float64) Set(newVal float64) (succeeded bool) {
	old := af.Load()
	succeeded = atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&af.val)),
		math.Float64bits(old),
		math.Float64bits(newVal))
	return
}
