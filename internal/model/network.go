package model

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"

	"raceloom/internal/raceerr"
)

// Network is the JSON shape of a dynamic network-algebra model: a set of
// switches (each with an initial flow table and the direct/requested
// updates a controller may apply to it), a link policy, the recursive
// variables backing controller definitions, and the list of variables that
// act as controllers.
type Network struct {
	Switches           map[string]Switch `json:"Switches" validate:"required,min=1,dive"`
	Links              string            `json:"Links"`
	RecursiveVariables map[string]string `json:"RecursiveVariables" validate:"required"`
	Controllers        []string          `json:"Controllers" validate:"required,min=1,dive,required"`
	OtherChannels      []string          `json:"OtherChannels"`
}

// DirectUpdate is a one-shot reconfiguration: a controller sends Policy on
// Channel and the switch installs it directly.
type DirectUpdate struct {
	Channel string `json:"Channel" validate:"required,varname"`
	Policy  string `json:"Policy" validate:"required"`
}

// RequestedUpdate is a request/response reconfiguration pair: the switch
// requests on RequestChannel, the controller answers on ResponseChannel.
type RequestedUpdate struct {
	RequestChannel  string `json:"RequestChannel" validate:"required,varname"`
	RequestPolicy   string `json:"RequestPolicy" validate:"required"`
	ResponseChannel string `json:"ResponseChannel" validate:"required,varname"`
	ResponsePolicy  string `json:"ResponsePolicy" validate:"required"`
}

// Switch is one switch's declaration within the network model.
type Switch struct {
	InitialFlowTable string            `json:"InitialFlowTable"`
	DirectUpdates    []DirectUpdate    `json:"DirectUpdates"`
	RequestedUpdates []RequestedUpdate `json:"RequestedUpdates"`
}

var varNamePattern = `^[A-Za-z](-?[A-Za-z0-9])*$`

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return regexpMatch(varNamePattern, fl.Field().String())
	})
	return v
}

// LoadNetwork parses and validates a JSON network model from r.
func LoadNetwork(r io.Reader) (*Network, error) {
	var n Network
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, raceerr.NewModelError("network model: invalid json: %v", err)
	}

	v := newValidator()
	if err := v.Struct(&n); err != nil {
		return nil, raceerr.NewModelError("network model: schema validation failed: %v", err)
	}

	if err := n.validateChannelUniqueness(); err != nil {
		return nil, err
	}
	if err := n.validateControllersDeclared(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Network) validateChannelUniqueness() error {
	seen := map[string]string{}
	claim := func(ch, swName string) error {
		if owner, ok := seen[ch]; ok && owner != swName {
			return raceerr.NewModelError("channel %q cannot be reused by switch %q (already used by %q)", ch, swName, owner)
		}
		seen[ch] = swName
		return nil
	}
	for name, sw := range n.Switches {
		for _, du := range sw.DirectUpdates {
			if err := claim(du.Channel, name); err != nil {
				return err
			}
		}
		for _, ru := range sw.RequestedUpdates {
			if err := claim(ru.RequestChannel, name); err != nil {
				return err
			}
			if err := claim(ru.ResponseChannel, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *Network) validateControllersDeclared() error {
	for _, c := range n.Controllers {
		if _, ok := n.RecursiveVariables[c]; !ok {
			return raceerr.NewModelError("recursive variable %q used as controller is not defined", c)
		}
	}
	return nil
}

// ToMetadata flattens the validated network model into the position-indexed
// element table the analysis core operates on. Switches are placed first
// (in map iteration order pinned by sorting their names, for determinism),
// then controllers.
func (n *Network) ToMetadata() Metadata {
	names := sortedKeys(n.Switches)
	meta := make(Metadata, 0, len(names)+len(n.Controllers))

	for i, name := range names {
		sw := n.Switches[name]
		chans := make([][]string, 0)
		tables := make([]string, 0)
		if sw.InitialFlowTable != "" {
			tables = append(tables, sw.InitialFlowTable)
			chans = append(chans, channelsForSwitch(sw))
		}
		meta = append(meta, ElementMetadata{
			ParentID:        i,
			Kind:            KindSwitch,
			Name:            name,
			InnerChannels:   chans,
			InnerFlowTables: tables,
			Link:            n.Links,
		})
	}
	for i, name := range n.Controllers {
		meta = append(meta, ElementMetadata{
			ParentID: i,
			Kind:     KindController,
			Name:     name,
		})
	}
	return meta
}

func channelsForSwitch(sw Switch) []string {
	var chans []string
	for _, du := range sw.DirectUpdates {
		chans = append(chans, du.Channel)
	}
	for _, ru := range sw.RequestedUpdates {
		chans = append(chans, ru.RequestChannel, ru.ResponseChannel)
	}
	return chans
}
