// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/okian/apas/internal/adapters/mq/queue"
	"github.com/okian/apas/internal/adapters/mq/worker"
	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/adapters/storage"
	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/dedupe"
	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/quiz"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
	"github.com/okian/apas/pkg/metrics"
)

const (
	defaultQueueSize  = 1_000
	defaultDedupeSize = 10_000
	defaultSecret     = "apas-dev-secret"
)

// quizAttempt is the live quiz of one athlete.
type quizAttempt struct {
	sport   string
	session *quiz.Session
}

// fitnessRecord is the last fitness form an athlete submitted.
type fitnessRecord struct {
	form       fitness.Form
	assessment fitness.Assessment
}

// Service implements the API dependencies for the athlete portal.
type Service struct {
	mu sync.RWMutex

	// Stores
	users      repository.UserStore
	athletes   repository.AthleteStore
	selections repository.SelectionStore
	progress   repository.ProgressStore
	jobs       repository.JobStore
	board      repository.Leaderboard
	videos     storage.VideoStore

	// Domain
	catalog *catalog.Catalog
	tokens  *pipeline.TokenIssuer
	codes   *account.Codes
	scorer  analysis.PerformanceScorer

	// Analysis pipeline
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	attemptsMu sync.Mutex
	attempts   map[string]*quizAttempt
	formsMu    sync.Mutex
	forms      map[string]fitnessRecord

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	stepDelay   time.Duration
	otpEcho     bool
	seed        bool
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the analysis queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the upload idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStepDelay paces the progress steps reported by workers.
func WithStepDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.stepDelay = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStores replaces the in-memory user, roster, selection and progress stores.
func WithStores(users repository.UserStore, athletes repository.AthleteStore, selections repository.SelectionStore, progress repository.ProgressStore) Option {
	return func(s *Service) {
		if users != nil {
			s.users = users
		}
		if athletes != nil {
			s.athletes = athletes
		}
		if selections != nil {
			s.selections = selections
		}
		if progress != nil {
			s.progress = progress
		}
	}
}

// WithJobStore replaces the in-memory analysis job store.
func WithJobStore(jobs repository.JobStore) Option {
	return func(s *Service) {
		if jobs != nil {
			s.jobs = jobs
		}
	}
}

// WithLeaderboard replaces the in-memory leaderboard.
func WithLeaderboard(board repository.Leaderboard) Option {
	return func(s *Service) {
		if board != nil {
			s.board = board
		}
	}
}

// WithVideoStore sets where uploads are written. Defaults to a local
// directory under the OS temp dir.
func WithVideoStore(v storage.VideoStore) Option {
	return func(s *Service) {
		if v != nil {
			s.videos = v
		}
	}
}

// WithCatalog replaces the embedded sport catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithTokenIssuer sets the stage token issuer.
func WithTokenIssuer(t *pipeline.TokenIssuer) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithCodes sets the one-time code book.
func WithCodes(c *account.Codes) Option {
	return func(s *Service) {
		if c != nil {
			s.codes = c
		}
	}
}

// WithScorer replaces the seeded mock scorer.
func WithScorer(sc analysis.PerformanceScorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithOTPEcho returns issued codes to the caller.
func WithOTPEcho(echo bool) Option {
	return func(s *Service) { s.otpEcho = echo }
}

// WithDemoData seeds demo users, roster athletes and leaderboard rows on Start.
func WithDemoData(seed bool) Option {
	return func(s *Service) { s.seed = seed }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with in-memory stores.
func New(opts ...Option) *Service {
	s := &Service{
		users:       repository.NewMemoryUsers(),
		athletes:    repository.NewMemoryAthletes(),
		selections:  repository.NewMemorySelections(),
		progress:    repository.NewMemoryProgress(),
		jobs:        repository.NewMemoryJobs(),
		board:       repository.NewMemoryLeaderboard(),
		attempts:    make(map[string]*quizAttempt),
		forms:       make(map[string]fitnessRecord),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		stepDelay:   250 * time.Millisecond,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil {
		s.catalog = catalog.MustDefault()
	}
	if s.tokens == nil {
		s.tokens = pipeline.NewTokenIssuer(defaultSecret)
	}
	if s.codes == nil {
		s.codes = account.NewCodes()
	}
	if s.scorer == nil {
		s.scorer = analysis.NewSeededScorer()
	}
	return s
}

// Start builds the analysis pipeline, seeds demo data and starts workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting athlete portal service...")

	if s.videos == nil {
		local, err := storage.NewLocalStore(filepath.Join(os.TempDir(), "apas-uploads"))
		if err != nil {
			return err
		}
		s.videos = local
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s.jobs, jobHandler{s: s},
		worker.WithStepDelay(s.stepDelay),
		worker.WithLogger(s.logger.Named("worker")),
	)

	if s.seed {
		if err := s.seedDemoData(ctx); err != nil {
			return err
		}
	}

	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "athlete portal service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("demoData", s.seed),
	)
	return nil
}

// Stop drains the analysis queue and stops workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping athlete portal service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "athlete portal service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Catalog exposes the sport catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Tokens exposes the stage token issuer for request authentication.
func (s *Service) Tokens() *pipeline.TokenIssuer { return s.tokens }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
	}

	s.attemptsMu.Lock()
	stats.QuizSessions = len(s.attempts)
	s.attemptsMu.Unlock()

	if n, err := s.users.Count(ctx); err == nil {
		stats.Users = n
	}
	if list, err := s.athletes.List(ctx); err == nil {
		stats.Athletes = len(list)
	}
	if n, err := s.board.Count(ctx); err == nil {
		stats.Leaderboard = n
		metrics.UpdateLeaderboardSize(n)
	}

	if s.started {
		stats.QueueLength = s.queue.Len()
		stats.DedupeSize = s.deduper.Size()

		metrics.UpdateQueueSize(stats.QueueLength)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
