package generator

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"raceloom/internal/engine"
)

func TestCacheHitsAndMisses(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		c := NewCache()
		key := cacheKey{Expression: "E0", PrevKind: "none"}

		Convey("A Get before any Put is a miss", func() {
			_, ok := c.Get(key)
			So(ok, ShouldBeFalse)
			So(c.Misses(), ShouldEqual, int64(1))
			So(c.Hits(), ShouldEqual, int64(0))
		})

		Convey("A Get after Put is a hit and returns the stored outputs", func() {
			outputs := []engine.Output{{ID: 0, SuccessorKind: "proc", Label: "proc('F0',0)", SuccessorExpression: "E1"}}
			c.Put(key, outputs)

			got, ok := c.Get(key)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, outputs)
			So(c.Hits(), ShouldEqual, int64(1))
		})

		Convey("Distinct prevKind values are distinct keys", func() {
			other := cacheKey{Expression: "E0", PrevKind: "proc"}
			c.Put(key, nil)
			_, ok := c.Get(other)
			So(ok, ShouldBeFalse)
		})
	})
}
