// Package repository holds the portal's persistence: users, roster athletes,
// sport selections, pipeline progress, analysis jobs and the leaderboard.
package repository

import (
	"context"

	"github.com/okian/apas/internal/domain/model"
)

// UserStore persists registered accounts.
type UserStore interface {
	// Create stores u. Returns ErrConflict when the Aadhaar number or a non-empty
	// Gmail address is already registered.
	Create(ctx context.Context, u model.User) error
	Get(ctx context.Context, id string) (model.User, error)
	Update(ctx context.Context, u model.User) error
	Count(ctx context.Context) (int, error)
	// ByAadhaar looks up the 12-digit identifier. ok is false when nobody has it.
	ByAadhaar(ctx context.Context, aadhaar string) (u model.User, ok bool, err error)
	// ByFirstName matches case-insensitively and may return several users.
	ByFirstName(ctx context.Context, firstName string) ([]model.User, error)
}

// AthleteStore persists the admin roster.
type AthleteStore interface {
	// Upsert inserts a or replaces the profile with the same ID.
	Upsert(ctx context.Context, a model.Athlete) error
	Get(ctx context.Context, id string) (model.Athlete, error)
	// List returns every athlete ordered by registration.
	List(ctx context.Context) ([]model.Athlete, error)
	SetStatus(ctx context.Context, id string, status model.ValidationStatus) (model.Athlete, error)
}

// SelectionStore keeps at most one active sport selection per user.
type SelectionStore interface {
	Put(ctx context.Context, s model.Selection) error
	Get(ctx context.Context, userID string) (model.Selection, error)
}

// ProgressStore holds the authoritative pipeline stage per user.
type ProgressStore interface {
	Get(ctx context.Context, userID string) (model.Progress, error)
	Put(ctx context.Context, p model.Progress) error
	// Apply reads the current progress, runs fn and stores its result atomically.
	// A user without stored progress reaches fn as a zero Progress carrying only UserID.
	// An error from fn aborts the write and is returned unchanged.
	Apply(ctx context.Context, userID string, fn func(model.Progress) (model.Progress, error)) (model.Progress, error)
}

// JobStore tracks analysis jobs.
type JobStore interface {
	Put(ctx context.Context, j model.AnalysisJob) error
	Get(ctx context.Context, id string) (model.AnalysisJob, error)
	// Update applies fn to the stored job and wakes waiters when it reaches a final status.
	Update(ctx context.Context, id string, fn func(*model.AnalysisJob)) (model.AnalysisJob, error)
	// Wait blocks until the job is done or ctx ends.
	Wait(ctx context.Context, id string) (model.AnalysisJob, error)
}

// Query narrows a leaderboard read. Empty fields match everything.
type Query struct {
	Sport string
	Tier  string
}

// Leaderboard ranks athletes by their best score.
type Leaderboard interface {
	// Submit records e when it is the athlete's first or best score.
	// Returns true if the board changed.
	Submit(ctx context.Context, e model.LeaderboardEntry) (bool, error)
	// TopN returns up to n entries best first. Filtered rows keep their global rank.
	TopN(ctx context.Context, n int, q Query) ([]model.LeaderboardEntry, error)
	// Rank returns the athlete's row. Returns ErrNotFound if the athlete is unknown.
	Rank(ctx context.Context, athleteID string) (model.LeaderboardEntry, error)
	Count(ctx context.Context) (int, error)
}
