package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/apas/internal/domain/model"
)

func entry(id string, score int, sport, tier string) model.LeaderboardEntry {
	return model.LeaderboardEntry{AthleteID: id, Name: "Athlete " + id, Sport: sport, Score: score, Tier: tier, Location: "Delhi"}
}

// testLeaderboard runs the behaviour every Leaderboard backend shares.
func testLeaderboard(t *testing.T, newBoard func(t *testing.T) Leaderboard) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		lb := newBoard(t)
		if n, _ := lb.Count(ctx); n != 0 {
			t.Fatalf("expected empty board, got %d", n)
		}
		changed, err := lb.Submit(ctx, entry("a1", 85, "Athletics", "Advanced"))
		if err != nil || !changed {
			t.Fatalf("submit: changed=%v err=%v", changed, err)
		}
		got, err := lb.Rank(ctx, "a1")
		if err != nil {
			t.Fatalf("rank: %v", err)
		}
		if got.Rank != 1 || got.Score != 85 || got.Name != "Athlete a1" {
			t.Errorf("unexpected row %+v", got)
		}
		if _, err := lb.Rank(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("BestScoreKept", func(t *testing.T) {
		lb := newBoard(t)
		mustSubmit(t, lb, entry("a1", 50, "Boxing", "Beginner"))
		changed, err := lb.Submit(ctx, entry("a1", 40, "Boxing", "Beginner"))
		if err != nil || changed {
			t.Fatalf("lower score: changed=%v err=%v", changed, err)
		}
		changed, _ = lb.Submit(ctx, entry("a1", 50, "Boxing", "Beginner"))
		if changed {
			t.Error("equal score must not change the board")
		}
		changed, _ = lb.Submit(ctx, entry("a1", 70, "Boxing", "Intermediate"))
		if !changed {
			t.Error("higher score must change the board")
		}
		got, _ := lb.Rank(ctx, "a1")
		if got.Score != 70 || got.Tier != "Intermediate" {
			t.Errorf("unexpected row %+v", got)
		}
		if n, _ := lb.Count(ctx); n != 1 {
			t.Errorf("expected one row per athlete, got %d", n)
		}
	})

	t.Run("OrderingAndTies", func(t *testing.T) {
		lb := newBoard(t)
		mustSubmit(t, lb, entry("first", 80, "Tennis", "Advanced"))
		mustSubmit(t, lb, entry("low", 60, "Tennis", "Beginner"))
		mustSubmit(t, lb, entry("second", 80, "Swimming", "Advanced"))
		mustSubmit(t, lb, entry("top", 95, "Athletics", "Advanced"))

		top, err := lb.TopN(ctx, 10, Query{})
		if err != nil {
			t.Fatalf("topN: %v", err)
		}
		want := []string{"top", "first", "second", "low"}
		if len(top) != len(want) {
			t.Fatalf("expected %d rows, got %d", len(want), len(top))
		}
		for i, id := range want {
			if top[i].AthleteID != id || top[i].Rank != i+1 {
				t.Errorf("row %d: want %s rank %d, got %s rank %d", i, id, i+1, top[i].AthleteID, top[i].Rank)
			}
		}

		// an improvement that ties re-enters behind earlier holders of that score
		mustSubmit(t, lb, entry("low", 95, "Tennis", "Advanced"))
		top, _ = lb.TopN(ctx, 2, Query{})
		if top[0].AthleteID != "top" || top[1].AthleteID != "low" {
			t.Errorf("unexpected order after improvement: %+v", top)
		}
	})

	t.Run("Filters", func(t *testing.T) {
		lb := newBoard(t)
		mustSubmit(t, lb, entry("a", 90, "Athletics", "Advanced"))
		mustSubmit(t, lb, entry("b", 80, "Swimming", "Advanced"))
		mustSubmit(t, lb, entry("c", 70, "Athletics", "Intermediate"))

		rows, err := lb.TopN(ctx, 10, Query{Sport: "athletics"})
		if err != nil {
			t.Fatalf("topN: %v", err)
		}
		if len(rows) != 2 || rows[0].AthleteID != "a" || rows[1].AthleteID != "c" {
			t.Fatalf("unexpected sport view %+v", rows)
		}
		if rows[1].Rank != 3 {
			t.Errorf("filtered rows keep their global rank, got %d", rows[1].Rank)
		}

		rows, _ = lb.TopN(ctx, 1, Query{Tier: "Advanced"})
		if len(rows) != 1 || rows[0].AthleteID != "a" {
			t.Errorf("unexpected tier view %+v", rows)
		}
		rows, _ = lb.TopN(ctx, 5, Query{Sport: "Golf"})
		if len(rows) != 0 {
			t.Errorf("expected empty view, got %+v", rows)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		lb := newBoard(t)
		if _, err := lb.TopN(ctx, 0, Query{}); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("expected ErrInvalidLimit, got %v", err)
		}
		if _, err := lb.Submit(ctx, entry("", 10, "Boxing", "Beginner")); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("expected ErrInvalidEntry for empty id, got %v", err)
		}
		if _, err := lb.Submit(ctx, entry("x", 101, "Boxing", "Beginner")); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("expected ErrInvalidEntry for score 101, got %v", err)
		}
	})
}

func mustSubmit(t *testing.T, lb Leaderboard, e model.LeaderboardEntry) {
	t.Helper()
	if _, err := lb.Submit(context.Background(), e); err != nil {
		t.Fatalf("submit %s: %v", e.AthleteID, err)
	}
}

func TestMemoryLeaderboard(t *testing.T) {
	testLeaderboard(t, func(*testing.T) Leaderboard { return NewMemoryLeaderboard() })
}

func TestMemoryLeaderboard_SortIsStable(t *testing.T) {
	ctx := context.Background()
	lb := NewMemoryLeaderboard()
	for i := range 20 {
		mustSubmit(t, lb, entry(fmt.Sprintf("t%02d", i), 50, "Boxing", "Beginner"))
	}
	first, _ := lb.TopN(ctx, 20, Query{})
	lb.mu.Lock()
	lb.publish()
	lb.mu.Unlock()
	second, _ := lb.TopN(ctx, 20, Query{})
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-sorting changed row %d: %+v vs %+v", i, first[i], second[i])
		}
		if first[i].AthleteID != fmt.Sprintf("t%02d", i) {
			t.Errorf("tie order broken at %d: %s", i, first[i].AthleteID)
		}
	}
}

func TestMemoryLeaderboard_ConcurrentSubmits(t *testing.T) {
	ctx := context.Background()
	lb := NewMemoryLeaderboard()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range 50 {
				id := fmt.Sprintf("a%d", i%10)
				_, _ = lb.Submit(ctx, entry(id, (w*50+i)%101, "Athletics", "Beginner"))
				_, _ = lb.TopN(ctx, 5, Query{})
			}
		}(w)
	}
	wg.Wait()

	if n, _ := lb.Count(ctx); n != 10 {
		t.Fatalf("expected 10 athletes, got %d", n)
	}
	rows, _ := lb.TopN(ctx, 10, Query{})
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Score < rows[i].Score {
			t.Errorf("rows out of order at %d: %d < %d", i, rows[i-1].Score, rows[i].Score)
		}
		if rows[i].Rank != i+1 {
			t.Errorf("rank %d at position %d", rows[i].Rank, i)
		}
	}
}

func BenchmarkMemoryLeaderboard_Submit(b *testing.B) {
	ctx := context.Background()
	lb := NewMemoryLeaderboard()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = lb.Submit(ctx, entry(fmt.Sprintf("a%d", i%1000), i%101, "Athletics", "Beginner"))
	}
}
