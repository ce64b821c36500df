package demo

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/apas/internal/adapters/http/api"
	"github.com/okian/apas/internal/adapters/storage"
	service "github.com/okian/apas/internal/app"
	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/scoring"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func portal(t *testing.T, apiOpts ...api.Option) *httptest.Server {
	t.Helper()
	videos, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	svc := service.New(
		service.WithVideoStore(videos),
		service.WithWorkerCount(2),
		service.WithQueueSize(16),
		service.WithStepDelay(0),
		service.WithOTPEcho(true),
		service.WithScorer(analysis.NewSeededScorer(analysis.WithLatencyRange(0, 0))),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)

	opts := append([]api.Option{api.WithAnalysisWait(5 * time.Second)}, apiOpts...)
	ts := httptest.NewServer(api.NewServer(svc, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRun(t *testing.T) {
	Convey("Given a running portal", t, func() {
		ts := portal(t, api.WithRateLimit(0, 0))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When five athletes walk the journey", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:  ts.URL,
				Athletes: 5,
				Workers:  3,
				Timeout:  10 * time.Second,
				Retries:  3,
			})

			Convey("Then every athlete is ranked", func() {
				So(err, ShouldBeNil)
				So(stats.Registered, ShouldEqual, 5)
				So(stats.Verified, ShouldEqual, 5)
				So(stats.QuizPassed, ShouldEqual, 5)
				So(stats.Cleared, ShouldEqual, 5)
				So(stats.Analyzed, ShouldEqual, 5)
				So(stats.Ranked, ShouldEqual, 5)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Board, ShouldEqual, 5)
				So(stats.TopScore, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a portal with a tight rate limit", t, func() {
		ts := portal(t, api.WithRateLimit(1, 1))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When retries are disabled", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:  ts.URL,
				Athletes: 3,
				Workers:  3,
				Timeout:  10 * time.Second,
				Retries:  1,
			})

			Convey("Then the run reports the athletes that were throttled", func() {
				So(errors.Is(err, ErrIncomplete), ShouldBeTrue)
				So(stats.Failed, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given nothing listening", t, func() {
		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), &Config{
				BaseURL:  "http://127.0.0.1:1",
				Athletes: 1,
				Workers:  1,
				Timeout:  time.Second,
			})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCheckOrder(t *testing.T) {
	Convey("Given leaderboard pages", t, func() {
		good := types.LeaderboardPage{Entries: []model.LeaderboardEntry{
			{Rank: 1, Score: 91}, {Rank: 2, Score: 91}, {Rank: 3, Score: 77},
		}}
		climbing := types.LeaderboardPage{Entries: []model.LeaderboardEntry{
			{Rank: 1, Score: 70}, {Rank: 2, Score: 88},
		}}
		gap := types.LeaderboardPage{Entries: []model.LeaderboardEntry{
			{Rank: 1, Score: 90}, {Rank: 3, Score: 80},
		}}

		So(checkOrder(good), ShouldBeNil)
		So(errors.Is(checkOrder(climbing), ErrOrder), ShouldBeTrue)
		So(errors.Is(checkOrder(gap), ErrOrder), ShouldBeTrue)
		So(checkOrder(types.LeaderboardPage{}), ShouldBeNil)
	})
}

func TestBest(t *testing.T) {
	Convey("Given a question with weighted options", t, func() {
		q := scoring.Question{ID: "q1", Options: []scoring.Option{
			{Text: "rarely", Points: 1},
			{Text: "daily", Points: 4},
			{Text: "weekly", Points: 2},
		}}

		Convey("Then the highest scoring option is chosen", func() {
			So(best(q), ShouldEqual, "daily")
			So(best(scoring.Question{}), ShouldEqual, "")
		})
	})
}

func TestRetryAfter(t *testing.T) {
	Convey("Given Retry-After values", t, func() {
		So(retryAfter("3"), ShouldEqual, 3*time.Second)
		So(retryAfter(""), ShouldEqual, defaultRetryAfter)
		So(retryAfter("soon"), ShouldEqual, defaultRetryAfter)
	})
}

func TestNewAthlete(t *testing.T) {
	Convey("Given a catalog slice", t, func() {
		sports := sportsFixture()
		a, err := newAthlete(4, sports, []string{"Goa", "Kerala"})

		Convey("Then the registration carries valid unique identifiers", func() {
			So(err, ShouldBeNil)
			So(a.reg.Aadhaar, ShouldHaveLength, 12)
			So(a.reg.Phone, ShouldHaveLength, 10)
			So(a.reg.Phone[0], ShouldEqual, '9')
			So(a.reg.State, ShouldEqual, "Goa")
			So(a.sport.ID, ShouldEqual, sports[0].ID)
			So(a.skill, ShouldEqual, skills[1])

			b, err := newAthlete(4, sports, []string{"Goa"})
			So(err, ShouldBeNil)
			So(b.reg.Aadhaar, ShouldNotEqual, a.reg.Aadhaar)
		})
	})
}

func sportsFixture() []catalog.Sport {
	return []catalog.Sport{
		{ID: "athletics", Name: "Athletics"},
		{ID: "football", Name: "Football"},
		{ID: "kabaddi", Name: "Kabaddi"},
		{ID: "wrestling", Name: "Wrestling"},
	}
}
