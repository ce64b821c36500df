package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/pkg/logger"
	"github.com/okian/apas/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2
	defaultJobTimeout       = 2 * time.Minute
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.AnalysisJob

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// JobStore records job status as the worker advances.
type JobStore interface {
	Update(ctx context.Context, id string, fn func(*model.AnalysisJob)) (model.AnalysisJob, error)
}

// Handler receives the outcome of a job before it is marked final.
type Handler interface {
	// Scored applies a result (pipeline, roster, leaderboard) and returns the athlete's rank.
	Scored(ctx context.Context, job Job, res analysis.Result) (rank int, err error)
	// Failed rolls the athlete back so the upload can be retried.
	Failed(ctx context.Context, job Job, cause error)
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	scorer  analysis.PerformanceScorer
	jobs    JobStore
	handler Handler
	name    string

	stepDelay  time.Duration
	jobTimeout time.Duration
	processed  *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, scorer analysis.PerformanceScorer, jobs JobStore, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		scorer:     scorer,
		jobs:       jobs,
		handler:    handler,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		processed:  new(atomic.Int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "analysis job failed", logger.String("job_id", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown signals the loop and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) update(ctx context.Context, id string, fn func(*model.AnalysisJob)) {
	if _, err := w.jobs.Update(ctx, id, func(j *model.AnalysisJob) {
		fn(j)
		j.UpdatedAt = time.Now().UTC()
	}); err != nil {
		w.logger.Warn(ctx, "job status not recorded", logger.String("job_id", id), logger.Error(err))
	}
}

// process runs one job to a final status.
func (w *InMemoryWorker) process(parent context.Context, job Job) error {
	start := time.Now()
	metrics.AddWorkerBusy(1)
	defer func() {
		metrics.AddWorkerBusy(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
		w.processed.Add(1)
	}()

	ctx, cancel := context.WithTimeout(parent, w.jobTimeout)
	defer cancel()

	w.update(ctx, job.ID, func(j *model.AnalysisJob) { j.Status = model.JobProcessing })

	err := analysis.ReportProgress(ctx, w.stepDelay, func(st analysis.Step) {
		w.update(ctx, job.ID, func(j *model.AnalysisJob) {
			j.Step, j.Progress = st.Label, st.Percent
		})
	})

	var res analysis.Result
	if err == nil {
		res, err = w.scorer.Score(ctx, job.Video.Ref())
	}
	var rank int
	if err == nil {
		rank, err = w.handler.Scored(ctx, job, res)
	}

	latency := float64(time.Since(start).Nanoseconds()) / 1e6
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "analysis_error")
		metrics.RecordAnalysis(string(model.JobFailed), latency)
		// the job context may be spent; final bookkeeping uses the parent
		w.handler.Failed(parent, job, err)
		w.update(parent, job.ID, func(j *model.AnalysisJob) {
			j.Status, j.Error = model.JobFailed, err.Error()
		})
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	metrics.RecordAnalysis(string(model.JobCompleted), latency)
	metrics.RecordAnalysisScore(res.OverallScore)
	done := analysis.Done()
	w.update(parent, job.ID, func(j *model.AnalysisJob) {
		j.Status = model.JobCompleted
		j.Step, j.Progress = done.Label, done.Percent
		j.Result = &res
		j.Rank = rank
	})
	w.logger.Info(ctx, "analysis job completed",
		logger.String("job_id", job.ID),
		logger.Int("overall_score", res.OverallScore),
		logger.Int("rank", rank),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates workerCount workers sharing one queue. Options apply to every worker.
func NewPool(workerCount int, q Queue, scorer analysis.PerformanceScorer, jobs JobStore, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		logger:    logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		w := NewInMemoryWorker(q, scorer, jobs, handler,
			append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.processed = p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerThroughput(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case now := <-ticker.C:
			if secs := now.Sub(last).Seconds(); secs > 0 {
				metrics.UpdateWorkerThroughput(float64(p.processed.Swap(0)) / secs)
			}
			last = now
		}
	}
}

// Shutdown closes the queue, then waits for every worker to finish its job in hand.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
