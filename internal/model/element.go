// Package model defines the element metadata record and the JSON network
// model / safety-property loaders that sit outside the analysis core.
package model

import (
	"fmt"

	"raceloom/internal/raceerr"
)

// ElementKind distinguishes switches from controllers.
type ElementKind string

const (
	KindSwitch     ElementKind = "SW"
	KindController ElementKind = "CT"
)

// ElementMetadata is the immutable per-element record constructed once from
// the loaded model and never mutated thereafter.
type ElementMetadata struct {
	ParentID int
	Kind     ElementKind
	Name     string
	// InnerChannels[i] lists the channel names feeding inner switch i.
	// Only populated for switches.
	InnerChannels [][]string
	// InnerFlowTables[i] is the initial policy string for inner switch i.
	// Only populated for switches.
	InnerFlowTables []string
	// Link is the switch's fixed link policy, composed with the
	// disjunction of flow tables to form the aggregated network policy.
	Link string
}

// Metadata is the full, position-indexed element table for a loaded model.
type Metadata []ElementMetadata

// Validate checks the invariants from spec §3: every channel mentioned in a
// switch's inner-channel lists appears in exactly one such list within that
// switch, and channels are unique across all switches.
func (m Metadata) Validate() error {
	seen := map[string]int{}
	for pos, e := range m {
		if e.Kind != KindSwitch {
			continue
		}
		if len(e.InnerChannels) != len(e.InnerFlowTables) {
			return raceerr.NewModelError("element %d: inner channel/flow-table count mismatch (%d vs %d)", pos, len(e.InnerChannels), len(e.InnerFlowTables))
		}
		for _, chans := range e.InnerChannels {
			for _, ch := range chans {
				if prior, ok := seen[ch]; ok {
					return raceerr.NewModelError("channel %q declared by both element %d and element %d", ch, prior, pos)
				}
				seen[ch] = pos
			}
		}
	}
	return nil
}

// InnerIndexForChannel returns the inner-switch index whose channel list
// contains ch, or ok=false if no such index exists on this element.
func (e ElementMetadata) InnerIndexForChannel(ch string) (idx int, ok bool) {
	for i, chans := range e.InnerChannels {
		for _, c := range chans {
			if c == ch {
				return i, true
			}
		}
	}
	return 0, false
}

// Position returns pos if it is a valid index into m, else an error.
func (m Metadata) Position(pos int) (int, error) {
	if pos < 0 || pos >= len(m) {
		return 0, fmt.Errorf("element position %d out of bounds for %d elements", pos, len(m))
	}
	return pos, nil
}
