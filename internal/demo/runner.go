// Package demo drives simulated athletes through the portal over HTTP, from
// registration to a leaderboard rank.
package demo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
)

// maxPage stays within the portal's default leaderboard limit.
const maxPage = 100

var (
	// ErrIncomplete is returned when some athletes did not reach the leaderboard.
	ErrIncomplete = errors.New("demo run incomplete")
	// ErrOrder is returned when the leaderboard is not sorted by score.
	ErrOrder = errors.New("leaderboard out of order")
)

type runner struct {
	cfg    *Config
	client *client
	stats  *Stats
	log    logger.Logger
}

// Run walks cfg.Athletes athletes through the portal, at most cfg.Workers at
// a time, and returns the collected statistics. A single athlete failing does
// not stop the others.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	r := &runner{
		cfg:    cfg,
		client: newClient(cfg, &stats.RateLimited),
		stats:  stats,
		log:    logger.Get().Named("demo"),
	}

	r.log.Info(ctx, "starting demo run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS))

	if err := r.client.call(ctx, http.MethodGet, "/healthz", "", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var sports []catalog.Sport
	if err := r.client.call(ctx, http.MethodGet, "/api/v1/sports", "", nil, &sports); err != nil {
		return stats, fmt.Errorf("list sports: %w", err)
	}
	var states []string
	if err := r.client.call(ctx, http.MethodGet, "/api/v1/states", "", nil, &states); err != nil {
		return stats, fmt.Errorf("list states: %w", err)
	}
	if len(sports) == 0 || len(states) == 0 {
		return stats, fmt.Errorf("%w: empty catalog", ErrIncomplete)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := range cfg.Athletes {
		g.Go(func() error {
			a, err := newAthlete(i, sports, states)
			if err != nil {
				return err
			}
			if err := r.walk(gctx, a); err != nil {
				atomic.AddInt64(&r.stats.Failed, 1)
				r.log.Warn(gctx, "athlete journey failed", logger.Int("athlete", i), logger.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var page types.LeaderboardPage
	path := fmt.Sprintf("/api/v1/leaderboard?limit=%d", min(max(cfg.Athletes, 1), maxPage))
	if err := r.client.call(ctx, http.MethodGet, path, "", nil, &page); err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	stats.Board = page.Total
	if len(page.Entries) > 0 {
		stats.TopScore = page.Entries[0].Score
	}
	if err := checkOrder(page); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(stats.StartTime)
	r.report(ctx)

	if stats.Ranked < int64(cfg.Athletes) {
		return stats, fmt.Errorf("%w: %d of %d athletes ranked", ErrIncomplete, stats.Ranked, cfg.Athletes)
	}
	return stats, nil
}

// checkOrder verifies ranks ascend by one and scores never increase.
func checkOrder(page types.LeaderboardPage) error {
	for i, e := range page.Entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrOrder, i, e.Rank)
		}
		if i > 0 && e.Score > page.Entries[i-1].Score {
			return fmt.Errorf("%w: rank %d scores %d above rank %d", ErrOrder, e.Rank, e.Score, i)
		}
	}
	return nil
}

func (r *runner) trace(ctx context.Context, a *athlete, step string) {
	if !r.cfg.Verbose {
		return
	}
	r.log.Debug(ctx, step,
		logger.Int("athlete", a.n),
		logger.String("user_id", a.sess.UserID),
		logger.String("sport", a.sport.ID),
		logger.String("stage", string(a.sess.Stage)))
}

func (r *runner) report(ctx context.Context) {
	s := r.stats
	var perSecond float64
	if s.Duration > 0 {
		perSecond = float64(s.Ranked) / s.Duration.Seconds()
	}
	r.log.Info(ctx, "final statistics",
		logger.Int("registered", int(s.Registered)),
		logger.Int("verified", int(s.Verified)),
		logger.Int("quizPassed", int(s.QuizPassed)),
		logger.Int("cleared", int(s.Cleared)),
		logger.Int("analyzed", int(s.Analyzed)),
		logger.Int("ranked", int(s.Ranked)),
		logger.Int("failed", int(s.Failed)),
		logger.Int("rateLimited", int(s.RateLimited)),
		logger.Int("board", s.Board),
		logger.Int("topScore", s.TopScore),
		logger.Duration("duration", s.Duration),
		logger.Float64("athletesPerSecond", perSecond))
}
