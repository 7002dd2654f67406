package engine

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type sleepyEngine struct {
	sleep time.Duration
}

func (e sleepyEngine) Submit(ctx context.Context, batch []Input, shards int) ([]Output, error) {
	time.Sleep(e.sleep)
	return nil, nil
}

func TestTimedEngineAccumulatesElapsedSeconds(t *testing.T) {
	Convey("Given a TimedEngine wrapping a slow inner engine", t, func() {
		te := NewTimedEngine(sleepyEngine{sleep: 10 * time.Millisecond})

		Convey("Two Submit calls accumulate at least their combined sleep time", func() {
			_, err := te.Submit(context.Background(), nil, 1)
			So(err, ShouldBeNil)
			_, err = te.Submit(context.Background(), nil, 1)
			So(err, ShouldBeNil)

			So(te.ElapsedSeconds(), ShouldBeGreaterThanOrEqualTo, 0.02)
		})
	})
}
