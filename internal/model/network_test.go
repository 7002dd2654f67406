package model

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const validNetworkJSON = `{
  "Switches": {
    "SW0": {
      "InitialFlowTable": "F0",
      "DirectUpdates": [{"Channel": "ch1", "Policy": "F1"}]
    }
  },
  "Links": "L",
  "RecursiveVariables": {"CT1": "..."},
  "Controllers": ["CT1"]
}`

func TestLoadNetworkValid(t *testing.T) {
	Convey("Given a well-formed network model", t, func() {
		n, err := LoadNetwork(strings.NewReader(validNetworkJSON))

		Convey("It loads without error", func() {
			So(err, ShouldBeNil)
			So(n.Switches, ShouldHaveLength, 1)
		})

		Convey("ToMetadata places switches before controllers", func() {
			meta := n.ToMetadata()
			So(meta, ShouldHaveLength, 2)
			So(meta[0].Kind, ShouldEqual, KindSwitch)
			So(meta[0].Name, ShouldEqual, "SW0")
			So(meta[1].Kind, ShouldEqual, KindController)
			So(meta[1].Name, ShouldEqual, "CT1")
		})
	})
}

func TestLoadNetworkRejectsUndeclaredController(t *testing.T) {
	Convey("Given a controller not present in RecursiveVariables", t, func() {
		badJSON := `{
			"Switches": {"SW0": {"InitialFlowTable": "F0"}},
			"Links": "L",
			"RecursiveVariables": {},
			"Controllers": ["CT1"]
		}`
		_, err := LoadNetwork(strings.NewReader(badJSON))

		Convey("Loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadNetworkRejectsReusedChannel(t *testing.T) {
	Convey("Given two switches claiming the same channel name", t, func() {
		badJSON := `{
			"Switches": {
				"SW0": {"InitialFlowTable": "F0", "DirectUpdates": [{"Channel": "ch1", "Policy": "F1"}]},
				"SW1": {"InitialFlowTable": "G0", "DirectUpdates": [{"Channel": "ch1", "Policy": "G1"}]}
			},
			"Links": "L",
			"RecursiveVariables": {"CT1": "..."},
			"Controllers": ["CT1"]
		}`
		_, err := LoadNetwork(strings.NewReader(badJSON))

		Convey("Loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadNetworkRejectsMissingSwitches(t *testing.T) {
	Convey("Given a model with no switches", t, func() {
		badJSON := `{
			"Switches": {},
			"Links": "L",
			"RecursiveVariables": {"CT1": "..."},
			"Controllers": ["CT1"]
		}`
		_, err := LoadNetwork(strings.NewReader(badJSON))

		Convey("Schema validation rejects it", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
