package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/apas/internal/adapters/mq/queue"
	worker "github.com/okian/apas/internal/adapters/mq/worker"
	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/analysis"
	model "github.com/okian/apas/internal/domain/model"
	logging "github.com/okian/apas/pkg/logger"
)

type mockScorer struct {
	mu     sync.Mutex
	errors map[string]error
	calls  int
}

func newMockScorer() *mockScorer { return &mockScorer{errors: make(map[string]error)} }

func (ms *mockScorer) Score(_ context.Context, v analysis.VideoRef) (analysis.Result, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.calls++
	if err, ok := ms.errors[v.Name]; ok {
		return analysis.Result{}, err
	}
	return analysis.Result{OverallScore: 80, Tier: analysis.TierAdvanced}, nil
}

func (ms *mockScorer) setError(name string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[name] = err
}

type mockHandler struct {
	mu      sync.Mutex
	scored  map[string]int
	failed  map[string]error
	scoreOn error
}

func newMockHandler() *mockHandler {
	return &mockHandler{scored: make(map[string]int), failed: make(map[string]error)}
}

func (h *mockHandler) Scored(_ context.Context, j model.AnalysisJob, res analysis.Result) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scoreOn != nil {
		return 0, h.scoreOn
	}
	h.scored[j.ID] = res.OverallScore
	return 3, nil
}

func (h *mockHandler) Failed(_ context.Context, j model.AnalysisJob, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed[j.ID] = cause
}

func (h *mockHandler) failure(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failed[id]
}

func submit(ctx context.Context, q *queue.InMemoryQueue, jobs *repository.MemoryJobs, id, name string) {
	j := model.AnalysisJob{ID: id, UserID: "u-" + id, Video: model.Video{Name: name}, Status: model.JobPending}
	convey.So(jobs.Put(ctx, j), convey.ShouldBeNil)
	convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a queue and job store", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		jobs := repository.NewMemoryJobs()
		scorer := newMockScorer()
		handler := newMockHandler()
		w := worker.NewInMemoryWorker(q, scorer, jobs, handler,
			worker.WithName("test-worker"), worker.WithStepDelay(0))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is scored", func() {
			submit(ctx, q, jobs, "j1", "sprint.mp4")
			done, err := jobs.Wait(ctx, "j1")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it completes with the result and rank", func() {
				convey.So(done.Status, convey.ShouldEqual, model.JobCompleted)
				convey.So(done.Progress, convey.ShouldEqual, 100)
				convey.So(done.Step, convey.ShouldEqual, "Analysis complete!")
				convey.So(done.Result, convey.ShouldNotBeNil)
				convey.So(done.Result.OverallScore, convey.ShouldEqual, 80)
				convey.So(done.Rank, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When scoring fails", func() {
			scorer.setError("broken.mp4", errors.New("decoder exploded"))
			submit(ctx, q, jobs, "j2", "broken.mp4")
			done, err := jobs.Wait(ctx, "j2")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the job fails and the handler rolls back", func() {
				convey.So(done.Status, convey.ShouldEqual, model.JobFailed)
				convey.So(done.Error, convey.ShouldContainSubstring, "decoder exploded")
				convey.So(done.Result, convey.ShouldBeNil)
				convey.So(handler.failure("j2"), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When applying the result fails", func() {
			handler.scoreOn = errors.New("leaderboard down")
			submit(ctx, q, jobs, "j3", "ok.mp4")
			done, err := jobs.Wait(ctx, "j3")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the job fails too", func() {
				convey.So(done.Status, convey.ShouldEqual, model.JobFailed)
				convey.So(done.Error, convey.ShouldContainSubstring, "leaderboard down")
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops promptly and tolerates a second call", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(50))
		jobs := repository.NewMemoryJobs()
		scorer := newMockScorer()
		handler := newMockHandler()
		pool := worker.NewPool(3, q, scorer, jobs, handler, worker.WithStepDelay(time.Millisecond))
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many jobs are queued", func() {
			ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
			for _, id := range ids {
				submit(ctx, q, jobs, id, id+".mp4")
			}

			convey.Convey("Then every job completes and shutdown is clean", func() {
				for _, id := range ids {
					j, err := jobs.Wait(ctx, id)
					convey.So(err, convey.ShouldBeNil)
					convey.So(j.Status, convey.ShouldEqual, model.JobCompleted)
				}
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockScorer(), repository.NewMemoryJobs(), newMockHandler())

		convey.Convey("Then it falls back to a CPU-based size", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
