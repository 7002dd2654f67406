package vclock

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIncrement(t *testing.T) {
	Convey("Given a fresh 3x3 vector clock", t, func() {
		vc := New(3)

		Convey("Incrementing position 1 bumps only vc[1][1]", func() {
			out, err := Increment(vc, 1)
			So(err, ShouldBeNil)
			So(out[1][1], ShouldEqual, 1)
			So(out[0][0], ShouldEqual, 0)

			Convey("The original matrix is untouched", func() {
				So(vc[1][1], ShouldEqual, 0)
			})
		})

		Convey("Incrementing an out-of-bounds position errors", func() {
			_, err := Increment(vc, 5)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTransfer(t *testing.T) {
	Convey("Given a 3x3 vector clock", t, func() {
		vc := New(3)

		Convey("Transfer from 0 to 1 increments both and max-merges", func() {
			out, err := Transfer(vc, 0, 1)
			So(err, ShouldBeNil)
			So(out[0][0], ShouldEqual, 1)
			So(out[1][1], ShouldEqual, 1)
			So(out[1][0], ShouldEqual, 1)
		})

		Convey("Transfer to the same position errors", func() {
			_, err := Transfer(vc, 1, 1)
			So(err, ShouldNotBeNil)
		})

		Convey("Transfer out of bounds errors", func() {
			_, err := Transfer(vc, 0, 9)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestComparable(t *testing.T) {
	Convey("Two equal clocks are comparable", t, func() {
		So(Comparable([]int{1, 2}, []int{1, 2}), ShouldBeTrue)
	})
	Convey("A strictly dominating clock is comparable", t, func() {
		So(Comparable([]int{2, 2}, []int{1, 1}), ShouldBeTrue)
	})
	Convey("Clocks that each lead in a different position are not comparable", t, func() {
		So(Comparable([]int{2, 0}, []int{0, 2}), ShouldBeFalse)
	})
}
