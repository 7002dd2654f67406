package racecheck

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"raceloom/internal/model"
	"raceloom/internal/oracle"
	"raceloom/internal/race"
	"raceloom/internal/trace"
	"raceloom/internal/transition"
)

// markerOracle's PropertyHolds holds iff policy contains marker; it never
// consults template, which is enough to drive the "before vs after" harmful
// comparisons every handler makes.
type markerOracle struct{ marker string }

func (markerOracle) AreNotEquivalent(context.Context, string, string) (bool, error) { return true, nil }
func (o markerOracle) PropertyHolds(_ context.Context, _ string, policy string) (bool, error) {
	return strings.Contains(policy, o.marker), nil
}
func (markerOracle) Stats() oracle.Stats { return oracle.Stats{} }

func nodeOf(tr transition.Transition) trace.Node {
	return trace.Node{Transition: tr}
}

func TestReconstructPolicy(t *testing.T) {
	Convey("Given a switch with two flow-table slots", t, func() {
		meta := model.Metadata{
			{Kind: model.KindSwitch, Name: "SW", InnerChannels: [][]string{{"ch1"}, {"ch2"}}, InnerFlowTables: []string{"F0", "G0"}, Link: "L"},
			{Kind: model.KindController, Name: "CT1"},
		}
		nodes := Nodes{nodeOf(transition.Empty{})}

		Convey("ReconstructPolicy overlays only the candidate's own channel slot", func() {
			candidate := transition.Rcfg{Channel: "ch2", PolicyStr: "G1", SrcPos: 1, DstPos: 0}
			got, err := ReconstructPolicy(nodes, 1, 0, candidate, meta)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "(F0+G1)·L·((F0+G1)·L)*")
		})

		Convey("A switch with no flow tables reconstructs to the drop policy", func() {
			dropMeta := model.Metadata{{Kind: model.KindSwitch, Name: "SW0"}}
			candidate := transition.Rcfg{Channel: "chX", PolicyStr: "F1", SrcPos: 0, DstPos: 0}
			got, err := ReconstructPolicy(nodes, 1, 0, candidate, dropMeta)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "0")
		})
	})
}

func ctswMeta() model.Metadata {
	return model.Metadata{
		{Kind: model.KindSwitch, Name: "SW", InnerChannels: [][]string{{"ch1"}}, InnerFlowTables: []string{"F0"}, Link: "L"},
		{Kind: model.KindController, Name: "CT1"},
	}
}

func TestDispatchCTSW(t *testing.T) {
	Convey("Given a controller reconfiguring the switch a packet then processes under", t, func() {
		meta := ctswMeta()
		nodes := Nodes{
			nodeOf(transition.Empty{}),
			nodeOf(transition.Rcfg{Channel: "ch1", PolicyStr: "F1", SrcPos: 1, DstPos: 0}),
			nodeOf(transition.PktProc{PolicyStr: "F0", SwPos: 0}),
		}
		templates := map[race.Kind]string{race.KindCTSW: "$POLICY != false"}

		Convey("The handler reconstructs the post-reconfiguration policy and detects divergence", func() {
			v, ok, err := Dispatch(context.Background(), nodes, 1, 2, meta, markerOracle{marker: "F1"}, templates)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(v.Kind, ShouldEqual, race.KindCTSW)
			So(v.Harmful, ShouldBeTrue)
		})

		Convey("Swapping the argument order yields the same verdict with policies swapped", func() {
			v, ok, err := Dispatch(context.Background(), nodes, 2, 1, meta, markerOracle{marker: "F1"}, templates)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(v.Kind, ShouldEqual, race.KindCTSW)
			So(v.Harmful, ShouldBeTrue)
		})

		Convey("An intervening packet processing at the same switch disqualifies the pair", func() {
			between := Nodes{
				nodeOf(transition.Empty{}),
				nodeOf(transition.Rcfg{Channel: "ch1", PolicyStr: "F1", SrcPos: 1, DstPos: 0}),
				nodeOf(transition.PktProc{PolicyStr: "F0", SwPos: 0}),
				nodeOf(transition.PktProc{PolicyStr: "F0", SwPos: 0}),
			}
			_, ok, err := Dispatch(context.Background(), between, 1, 3, meta, markerOracle{marker: "F1"}, templates)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDispatchCTSWCT(t *testing.T) {
	Convey("Given two controllers racing to reconfigure the same switch", t, func() {
		meta := model.Metadata{
			{Kind: model.KindSwitch, Name: "SW", InnerChannels: [][]string{{"ch1"}, {"ch2"}}, InnerFlowTables: []string{"F0", "G0"}, Link: "L"},
			{Kind: model.KindController, Name: "CT1"},
			{Kind: model.KindController, Name: "CT2"},
		}
		nodes := Nodes{
			nodeOf(transition.Empty{}),
			nodeOf(transition.Rcfg{Channel: "ch1", PolicyStr: "F1", SrcPos: 1, DstPos: 0}),
			nodeOf(transition.Rcfg{Channel: "ch2", PolicyStr: "G1", SrcPos: 2, DstPos: 0}),
		}
		templates := map[race.Kind]string{race.KindCTSWCT: "$POLICY != false"}

		Convey("The handler reconstructs both candidate policies and compares them", func() {
			v, ok, err := Dispatch(context.Background(), nodes, 1, 2, meta, markerOracle{marker: "G1"}, templates)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(v.Kind, ShouldEqual, race.KindCTSWCT)
			So(v.Harmful, ShouldBeTrue)
		})
	})
}

func TestDispatchCTCTSW(t *testing.T) {
	Convey("Given a controller reconfiguring the source of a pending switch reconfiguration", t, func() {
		meta := model.Metadata{
			{Kind: model.KindSwitch, Name: "SW", InnerChannels: [][]string{{"ch1"}}, InnerFlowTables: []string{"F0"}, Link: "L"},
			{Kind: model.KindController, Name: "CT1"},
			{Kind: model.KindController, Name: "CT2"},
		}
		nodes := Nodes{
			nodeOf(transition.Empty{}),
			nodeOf(transition.Rcfg{Channel: "ch1", PolicyStr: "F1", SrcPos: 1, DstPos: 0}),
			nodeOf(transition.Rcfg{Channel: "ch2", PolicyStr: "F2", SrcPos: 2, DstPos: 1}),
		}
		templates := map[race.Kind]string{race.KindCTCTSW: "$POLICY != false"}

		Convey("The handler compares the switch's policy before and after the re-route takes effect", func() {
			v, ok, err := Dispatch(context.Background(), nodes, 1, 2, meta, markerOracle{marker: "F2"}, templates)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(v.Kind, ShouldEqual, race.KindCTCTSW)
			So(v.Harmful, ShouldBeTrue)
		})
	})
}

func TestDispatchSWSWUnreachableFallthrough(t *testing.T) {
	Convey("Given two packet-processing transitions (normally pre-filtered by the analyzer)", t, func() {
		meta := ctswMeta()
		nodes := Nodes{
			nodeOf(transition.Empty{}),
			nodeOf(transition.PktProc{PolicyStr: "F0", SwPos: 0}),
			nodeOf(transition.PktProc{PolicyStr: "F0", SwPos: 0}),
		}
		Convey("Dispatch declines to classify the pair", func() {
			_, ok, err := Dispatch(context.Background(), nodes, 1, 2, meta, markerOracle{marker: "F0"}, nil)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}
