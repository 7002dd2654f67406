package generator

import (
	"context"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"raceloom/internal/engine"
	"raceloom/internal/trace"
)

// fakeEngine expands a tiny fixed model: the root expression "E0" has two
// successors (a proc and an rcfg), and every other expression is terminal.
type fakeEngine struct{ calls int }

func (f *fakeEngine) Submit(ctx context.Context, batch []engine.Input, shards int) ([]engine.Output, error) {
	f.calls++
	var out []engine.Output
	for _, in := range batch {
		if in.Expression != "E0" {
			continue
		}
		out = append(out,
			engine.Output{ID: in.ID, SuccessorKind: "proc", Label: "proc('F0',0)", SuccessorExpression: "E1"},
			engine.Output{ID: in.ID, SuccessorKind: "rcfg", Label: "rcfg(ch1, 'F1', 1, 0)", SuccessorExpression: "E2"},
		)
	}
	return out, nil
}

func TestSequentialDFSBoundaryDepthZero(t *testing.T) {
	Convey("Given depth 0", t, func() {
		tree, root := NewRoot(2, "E0", 0, nil)
		result, err := Sequential(context.Background(), StrategyDFS, tree, root, &fakeEngine{}, NewCache())
		So(err, ShouldBeNil)

		Convey("The tree has a single root and no traces", func() {
			So(result.Tree.Len(), ShouldEqual, 1)
			So(result.Tree.Traces(), ShouldBeEmpty)
		})
	})
}

func TestStrategiesProduceIdenticalTraces(t *testing.T) {
	Convey("Given the same tiny model expanded by DFS, BFS, and PBFS", t, func() {
		depth := 2

		dfsTree, dfsRoot := NewRoot(2, "E0", depth, nil)
		dfsResult, err := Sequential(context.Background(), StrategyDFS, dfsTree, dfsRoot, &fakeEngine{}, NewCache())
		So(err, ShouldBeNil)

		bfsTree, bfsRoot := NewRoot(2, "E0", depth, nil)
		bfsResult, err := Sequential(context.Background(), StrategyBFS, bfsTree, bfsRoot, &fakeEngine{}, NewCache())
		So(err, ShouldBeNil)

		pbfsTree, pbfsRoot := NewRoot(2, "E0", depth, nil)
		pbfsResult, err := ParallelBFS(context.Background(), pbfsTree, pbfsRoot, &fakeEngine{}, NewCache(), 3)
		So(err, ShouldBeNil)

		Convey("All three enumerate the same set of transition-label traces", func() {
			dfsSet := labelSets(dfsResult.Tree)
			bfsSet := labelSets(bfsResult.Tree)
			pbfsSet := labelSets(pbfsResult.Tree)

			So(dfsSet, ShouldResemble, bfsSet)
			So(dfsSet, ShouldResemble, pbfsSet)
		})
	})
}

func labelSets(tree *trace.Tree) []string {
	var out []string
	for _, tr := range tree.Traces() {
		labels := ""
		for _, idx := range tr {
			labels += tree.Node(idx).Transition.String() + "|"
		}
		out = append(out, labels)
	}
	sort.Strings(out)
	return out
}
