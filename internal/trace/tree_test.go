package trace

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"raceloom/internal/transition"
	"raceloom/internal/vclock"
)

func TestTree(t *testing.T) {
	Convey("Given a fresh tree with only a root", t, func() {
		root := Node{Transition: transition.Empty{}, VC: vclock.New(2)}
		tree, rootIdx := NewTree(root, nil)

		Convey("It has exactly one node and no traces (boundary: depth 0)", func() {
			So(tree.Len(), ShouldEqual, 1)
			So(tree.Traces(), ShouldBeEmpty)
		})

		Convey("Adding a child makes the root no longer a leaf", func() {
			vc, _ := vclock.Increment(root.VC, 0)
			child := Node{Transition: transition.PktProc{PolicyStr: "F0", SwPos: 0}, VC: vc}
			childIdx, err := tree.AddNode(child, rootIdx)
			So(err, ShouldBeNil)

			leaves := tree.Leaves()
			So(leaves, ShouldResemble, []int{childIdx})

			Convey("Traces yields one root-first path", func() {
				traces := tree.Traces()
				So(len(traces), ShouldEqual, 1)
				So(traces[0][0], ShouldEqual, rootIdx)
				So(traces[0][len(traces[0])-1], ShouldEqual, childIdx)
			})
		})

		Convey("Adding a node with an unknown parent errors", func() {
			_, err := tree.AddNode(Node{Transition: transition.Empty{}, VC: root.VC}, 99)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAnnotateRacing(t *testing.T) {
	Convey("Given a tree with two children of the root", t, func() {
		root := Node{Transition: transition.Empty{}, VC: vclock.New(2)}
		tree, rootIdx := NewTree(root, nil)
		a, _ := tree.AddNode(Node{Transition: transition.PktProc{PolicyStr: "F0", SwPos: 0}, VC: root.VC}, rootIdx)
		b, _ := tree.AddNode(Node{Transition: transition.PktProc{PolicyStr: "F1", SwPos: 1}, VC: root.VC}, rootIdx)

		Convey("AnnotateRacing links both sides symmetrically", func() {
			tree.AnnotateRacing(a, b)
			So(tree.Node(a).IsRacingWith(b), ShouldBeTrue)
			So(tree.Node(b).IsRacingWith(a), ShouldBeTrue)
		})
	})
}
