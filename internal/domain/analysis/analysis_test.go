package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/apas/internal/domain/analysis"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProber struct {
	meta analysis.Metadata
	err  error
}

func (f fakeProber) Probe(context.Context, string) (analysis.Metadata, error) { return f.meta, f.err }

func TestSeededScorer(t *testing.T) {
	Convey("Given a seeded scorer without latency", t, func() {
		scorer := analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0))
		ctx := context.Background()

		Convey("When the same filename is scored twice", func() {
			a, err1 := scorer.Score(ctx, analysis.VideoRef{Name: "sprint.mp4"})
			b, err2 := scorer.Score(ctx, analysis.VideoRef{Name: "sprint.mp4"})

			Convey("Then the results are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When many filenames are scored", func() {
			names := []string{"a.mp4", "jump.mov", "athlete_42.avi", "x", "Long Jump Final.mp4", "टेस्ट.mp4"}

			Convey("Then every metric stays inside its range", func() {
				for _, n := range names {
					r, err := scorer.Score(ctx, analysis.VideoRef{Name: n})
					So(err, ShouldBeNil)
					So(r.OverallScore, ShouldBeBetweenOrEqual, 70, 95)
					So(r.JumpHeight, ShouldBeBetweenOrEqual, 35.0, 65.0)
					So(r.StrideLength, ShouldBeBetweenOrEqual, 1.1, 1.7)
					So(r.JointAngles.Knee, ShouldBeBetweenOrEqual, 135, 160)
					So(r.JointAngles.Ankle, ShouldBeBetweenOrEqual, 80, 100)
					So(r.JointAngles.Hip, ShouldBeBetweenOrEqual, 155, 185)
					So(r.Speed, ShouldBeBetweenOrEqual, 7.0, 13.0)
					So(r.Balance, ShouldBeBetweenOrEqual, 70, 95)
					So(r.Technique, ShouldBeBetweenOrEqual, 65, 95)
					So(r.FrameCount, ShouldBeBetweenOrEqual, 200, 699)
					So(r.Duration, ShouldBeBetweenOrEqual, 5.0, 15.0)
					So(r.Recommendations, ShouldHaveLength, 3)
					So(r.AnalysisType, ShouldEqual, analysis.AnalysisTypeMock)
					So(r.Summary, ShouldStartWith, "Analysis completed for "+n+".")
					So(r.Tier, ShouldEqual, analysis.Tier(r.OverallScore))
				}
			})
		})

		Convey("When the video has no name", func() {
			_, err := scorer.Score(ctx, analysis.VideoRef{})

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, analysis.ErrNoVideo)
			})
		})
	})

	Convey("Given a scorer with a lower baseline", t, func() {
		scorer := analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0), analysis.WithBaseline(40))

		Convey("Then scores start from the baseline", func() {
			r, err := scorer.Score(context.Background(), analysis.VideoRef{Name: "clip.mp4"})
			So(err, ShouldBeNil)
			So(r.OverallScore, ShouldBeBetweenOrEqual, 40, 65)
		})
	})

	Convey("Given a slow scorer and a cancelled context", t, func() {
		scorer := analysis.NewSeededScorer(analysis.WithLatencyRange(time.Second, 2*time.Second))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := scorer.Score(ctx, analysis.VideoRef{Name: "clip.mp4"})

		Convey("Then scoring stops with the context error", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a scorer with a prober", t, func() {
		ctx := context.Background()
		ref := analysis.VideoRef{Name: "clip.mp4", Path: "/tmp/clip.mp4"}
		plain, _ := analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0)).Score(ctx, ref)

		Convey("When probing succeeds", func() {
			s := analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0),
				analysis.WithProber(fakeProber{meta: analysis.Metadata{Duration: 12.3456, FrameCount: 370}}))
			r, err := s.Score(ctx, ref)

			Convey("Then container metadata replaces the mock values", func() {
				So(err, ShouldBeNil)
				So(r.Duration, ShouldEqual, 12.35)
				So(r.FrameCount, ShouldEqual, 370)
				So(r.OverallScore, ShouldEqual, plain.OverallScore)
			})
		})

		Convey("When probing fails", func() {
			s := analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0),
				analysis.WithProber(fakeProber{err: analysis.ErrProbe}))
			r, err := s.Score(ctx, ref)

			Convey("Then the mock values are kept", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, plain)
			})
		})
	})
}

func TestClassification(t *testing.T) {
	Convey("Given overall scores", t, func() {
		Convey("Then tiers and benchmarks follow the cut-offs", func() {
			So(analysis.Tier(85), ShouldEqual, analysis.TierAdvanced)
			So(analysis.Tier(70), ShouldEqual, analysis.TierIntermediate)
			So(analysis.Tier(69), ShouldEqual, analysis.TierBeginner)
			So(analysis.Benchmark(90), ShouldEqual, analysis.BenchmarkAbove)
			So(analysis.Benchmark(75), ShouldEqual, analysis.BenchmarkAt)
			So(analysis.Benchmark(10), ShouldEqual, analysis.BenchmarkBelow)
		})

		Convey("Then the seed is the character code sum", func() {
			So(analysis.Seed("ab"), ShouldEqual, 97+98)
			So(analysis.Seed(""), ShouldEqual, 0)
		})
	})
}

func TestReportProgress(t *testing.T) {
	Convey("Given the progress reporter", t, func() {
		var seen []analysis.Step

		Convey("When it runs to completion", func() {
			err := analysis.ReportProgress(context.Background(), time.Millisecond, func(s analysis.Step) {
				seen = append(seen, s)
			})

			Convey("Then every step but the last is reported in order", func() {
				So(err, ShouldBeNil)
				So(seen, ShouldHaveLength, 4)
				So(seen[0].Percent, ShouldEqual, 0)
				So(seen[3].Label, ShouldEqual, "Generating report...")
				So(analysis.Done().Percent, ShouldEqual, 100)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := analysis.ReportProgress(ctx, time.Hour, func(s analysis.Step) { seen = append(seen, s) })

			Convey("Then it stops after the first step", func() {
				So(err, ShouldEqual, context.Canceled)
				So(seen, ShouldHaveLength, 1)
			})
		})
	})
}
