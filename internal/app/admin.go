package service

import (
	"context"
	"fmt"

	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/roster"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
)

// TopN returns up to n leaderboard rows, optionally narrowed by sport or tier.
func (s *Service) TopN(ctx context.Context, n int, q repository.Query) (types.LeaderboardPage, error) {
	entries, err := s.board.TopN(ctx, n, q)
	if err != nil {
		return types.LeaderboardPage{}, err
	}
	total, err := s.board.Count(ctx)
	if err != nil {
		return types.LeaderboardPage{}, err
	}
	return types.LeaderboardPage{Entries: entries, Total: total}, nil
}

// Rank returns the leaderboard row of an athlete.
func (s *Service) Rank(ctx context.Context, athleteID string) (model.LeaderboardEntry, error) {
	return s.board.Rank(ctx, athleteID)
}

// Athletes lists roster profiles matching f in registration order.
func (s *Service) Athletes(ctx context.Context, f roster.Filter) ([]model.Athlete, error) {
	all, err := s.athletes.List(ctx)
	if err != nil {
		return nil, err
	}
	return roster.Apply(all, f), nil
}

// Athlete returns one roster profile.
func (s *Service) Athlete(ctx context.Context, id string) (model.Athlete, error) {
	return s.athletes.Get(ctx, id)
}

// Summary counts the whole roster for the dashboard.
func (s *Service) Summary(ctx context.Context) (roster.Summary, error) {
	all, err := s.athletes.List(ctx)
	if err != nil {
		return roster.Summary{}, err
	}
	return roster.Summarize(all), nil
}

// SetStatus records a reviewer decision on an athlete.
func (s *Service) SetStatus(ctx context.Context, id string, status model.ValidationStatus) (model.Athlete, error) {
	if !status.Valid() {
		return model.Athlete{}, fmt.Errorf("%w: %q", types.ErrInvalidStatus, status)
	}
	a, err := s.athletes.SetStatus(ctx, id, status)
	if err != nil {
		return model.Athlete{}, err
	}
	s.log().Info(ctx, "validation status changed",
		logger.String("athlete_id", id),
		logger.String("status", string(status)),
	)
	return a, nil
}
