package race

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func sampleRace(nodePosA, nodePosB int) Race {
	return Race{
		Kind:  KindCTSW,
		Trace: []string{"", "rcfg(ch1, 'F1', 1, 0)", "proc('F0',0)"},
		RacingNodes: []RacingNode{
			{NodePos: nodePosA, ElementPos: 0, ReconstructedPolicy: "F1"},
			{NodePos: nodePosB, ElementPos: 1, ReconstructedPolicy: "F0"},
		},
	}
}

func TestAggregatorDedup(t *testing.T) {
	Convey("Given two equivalent races discovered from different traces", t, func() {
		agg := NewAggregator()
		a := sampleRace(1, 2)
		b := sampleRace(1, 2)
		b.Trace = []string{"", "rcfg(ch1, 'F1', 1, 0)", "proc('F0',0)"} // identical transition strings

		Convey("Adding both keeps only one representative", func() {
			agg.Add(a)
			agg.Add(b)
			So(agg.Len(), ShouldEqual, 1)
		})
	})
}

func TestAggregatorKeepsLexEarliest(t *testing.T) {
	Convey("Given a race recorded at two different racing-node position pairs", t, func() {
		agg := NewAggregator()

		later := sampleRace(3, 4)
		earlier := sampleRace(1, 2)
		// same transition strings at positions 3,4 as earlier has at 1,2, so both share a key
		later.Trace = []string{"", "proc('G0',0)", "proc('G0',0)", "rcfg(ch1, 'F1', 1, 0)", "proc('F0',0)"}

		Convey("Adding the later one first, then the earlier, keeps the earlier", func() {
			agg.Add(later)
			agg.Add(earlier)

			races := agg.Races()
			So(races, ShouldHaveLength, 1)
			So(races[0].RacingNodes[0].NodePos, ShouldEqual, 1)
			So(races[0].RacingNodes[1].NodePos, ShouldEqual, 2)
		})

		Convey("Adding the earlier one first, then the later, still keeps the earlier", func() {
			agg.Add(earlier)
			agg.Add(later)

			races := agg.Races()
			So(races, ShouldHaveLength, 1)
			So(races[0].RacingNodes[0].NodePos, ShouldEqual, 1)
		})
	})
}

func TestAggregatorDistinctRacesBothKept(t *testing.T) {
	Convey("Given two races with different transition strings", t, func() {
		agg := NewAggregator()
		a := sampleRace(1, 2)
		b := sampleRace(1, 2)
		b.Trace = []string{"", "rcfg(ch2, 'G1', 1, 0)", "proc('G0',0)"}

		agg.Add(a)
		agg.Add(b)

		Convey("Both are kept", func() {
			So(agg.Len(), ShouldEqual, 2)
			So(agg.Races(), ShouldHaveLength, 2)
		})
	})
}
