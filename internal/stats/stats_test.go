package stats

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCollector(t *testing.T) {
	Convey("Given a collector with a few entries", t, func() {
		c := NewCollector()
		c.Add(
			Entry{Key: KeyTracesGenerated, Label: "Traces generated", Value: 12},
			Entry{Key: KeyHarmfulRaceCount, Label: "Harmful races", Value: 2},
		)

		Convey("Keys and Values join in insertion order", func() {
			So(c.Keys(","), ShouldEqual, KeyTracesGenerated+","+KeyHarmfulRaceCount)
			So(c.Values(","), ShouldEqual, "12,2")
		})

		Convey("Pretty renders an aligned label/value report", func() {
			pretty := c.Pretty()
			So(pretty, ShouldContainSubstring, "Traces generated:")
			So(pretty, ShouldContainSubstring, "Harmful races:")
			So(strings.Count(pretty, "\n"), ShouldEqual, 2)
		})
	})
}
