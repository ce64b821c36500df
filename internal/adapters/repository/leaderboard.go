package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/pkg/metrics"
)

// Ordering: score DESC, then insertion sequence ASC. An athlete who improves
// takes a fresh sequence, so equal scores rank in the order they were reached.

type lbRecord struct {
	entry model.LeaderboardEntry
	seq   uint64
}

// lbSnapshot is an immutable ranked view published after every write.
type lbSnapshot struct {
	ranked []model.LeaderboardEntry
	byID   map[string]int // athlete id -> index in ranked
}

// MemoryLeaderboard is the in-process Leaderboard. Reads never take the write lock.
type MemoryLeaderboard struct {
	mu      sync.Mutex
	records map[string]*lbRecord
	seq     uint64

	snapshot atomic.Pointer[lbSnapshot]
}

// NewMemoryLeaderboard returns an empty board.
func NewMemoryLeaderboard() *MemoryLeaderboard {
	l := &MemoryLeaderboard{records: make(map[string]*lbRecord)}
	l.snapshot.Store(&lbSnapshot{byID: map[string]int{}})
	return l
}

func validEntry(e model.LeaderboardEntry) error {
	if strings.TrimSpace(e.AthleteID) == "" {
		return fmt.Errorf("athlete id required: %w", ErrInvalidEntry)
	}
	if e.Score < 0 || e.Score > 100 {
		return fmt.Errorf("score %d outside 0..100: %w", e.Score, ErrInvalidEntry)
	}
	return nil
}

func (l *MemoryLeaderboard) Submit(_ context.Context, e model.LeaderboardEntry) (bool, error) {
	if err := validEntry(e); err != nil {
		metrics.RecordLeaderboardWrite("error")
		return false, err
	}
	start := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	result := "inserted"
	if old, ok := l.records[e.AthleteID]; ok {
		if e.Score <= old.entry.Score {
			metrics.RecordLeaderboardWrite("kept")
			return false, nil
		}
		result = "improved"
	}
	l.seq++
	e.Rank = 0
	l.records[e.AthleteID] = &lbRecord{entry: e, seq: l.seq}
	l.publish()

	metrics.RecordLeaderboardWrite(result)
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	return true, nil
}

// publish rebuilds the ranked view. Callers hold mu.
func (l *MemoryLeaderboard) publish() {
	recs := make([]*lbRecord, 0, len(l.records))
	for _, r := range l.records {
		recs = append(recs, r)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].entry.Score != recs[j].entry.Score {
			return recs[i].entry.Score > recs[j].entry.Score
		}
		return recs[i].seq < recs[j].seq
	})
	snap := &lbSnapshot{
		ranked: make([]model.LeaderboardEntry, len(recs)),
		byID:   make(map[string]int, len(recs)),
	}
	for i, r := range recs {
		e := r.entry
		e.Rank = i + 1
		snap.ranked[i] = e
		snap.byID[e.AthleteID] = i
	}
	l.snapshot.Store(snap)
	metrics.IncrementSnapshotCount()
	metrics.UpdateLeaderboardSize(len(recs))
}

func (l *MemoryLeaderboard) TopN(_ context.Context, n int, q Query) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()
	snap := l.snapshot.Load()
	out := make([]model.LeaderboardEntry, 0, min(n, len(snap.ranked)))
	for _, e := range snap.ranked {
		if len(out) == n {
			break
		}
		if q.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *MemoryLeaderboard) Rank(_ context.Context, athleteID string) (model.LeaderboardEntry, error) {
	snap := l.snapshot.Load()
	i, ok := snap.byID[athleteID]
	if !ok {
		return model.LeaderboardEntry{}, fmt.Errorf("athlete %s: %w", athleteID, ErrNotFound)
	}
	return snap.ranked[i], nil
}

func (l *MemoryLeaderboard) Count(context.Context) (int, error) {
	return len(l.snapshot.Load().ranked), nil
}

func (q Query) matches(e model.LeaderboardEntry) bool {
	if q.Sport != "" && !strings.EqualFold(q.Sport, e.Sport) {
		return false
	}
	if q.Tier != "" && !strings.EqualFold(q.Tier, e.Tier) {
		return false
	}
	return true
}
