package model

import (
	"encoding/json"
	"io"

	"raceloom/internal/race"
	"raceloom/internal/raceerr"
)

// SafetyProperty is a single property template and the verdict it must
// hold under (MustBe true means the template must be "not false"; MustBe
// false means it must be equivalent to "false").
type SafetyProperty struct {
	Expression string `json:"Expression" validate:"required"`
	MustBe     bool   `json:"MustBe"`
}

// SafetyProperties maps each race kind that can carry a property
// (CT_SW, CT_SW_CT, CT_CT_SW — SW_SW is always skipped and has none) to its
// template.
type SafetyProperties struct {
	Properties map[race.Kind]SafetyProperty `json:"Properties"`
}

var allowedPropertyKinds = map[race.Kind]bool{
	race.KindCTSW:   true,
	race.KindCTSWCT: true,
	race.KindCTCTSW: true,
}

// LoadSafetyProperties parses and validates a JSON safety-property set.
func LoadSafetyProperties(r io.Reader) (*SafetyProperties, error) {
	var sp SafetyProperties
	if err := json.NewDecoder(r).Decode(&sp); err != nil {
		return nil, raceerr.NewModelError("safety properties: invalid json: %v", err)
	}
	for kind, prop := range sp.Properties {
		if !allowedPropertyKinds[kind] {
			return nil, raceerr.NewModelError("safety properties: unknown race type %q; only CT_SW, CT_SW_CT, CT_CT_SW accept a property", kind)
		}
		if prop.Expression == "" {
			return nil, raceerr.NewModelError("safety properties: empty expression for race type %q", kind)
		}
	}
	return &sp, nil
}

// NKPL connective constants for property templates expressed in the
// oracle's policy algebra.
const (
	nkplNotEquiv = "!="
	nkplEquiv    = "=="
	nkplFalse    = "false"
)

// ToTemplates converts each loaded property into the propertyHolds template
// string: "<Expression> != false" when MustBe is true, "<Expression> ==
// false" when MustBe is false. Expression is expected to contain the
// "$POLICY" placeholder token marking where the oracle substitutes the
// reconstructed policy under test.
func (sp *SafetyProperties) ToTemplates() map[race.Kind]string {
	out := make(map[race.Kind]string, len(sp.Properties))
	for kind, prop := range sp.Properties {
		connective := nkplNotEquiv
		if !prop.MustBe {
			connective = nkplEquiv
		}
		out[kind] = prop.Expression + " " + connective + " " + nkplFalse
	}
	return out
}
