package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/pkg/metrics"
)

// MemoryUsers is a map-backed UserStore.
type MemoryUsers struct {
	mu        sync.RWMutex
	byID      map[string]model.User
	byAadhaar map[string]string
	byGmail   map[string]string
}

// NewMemoryUsers returns an empty store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:      make(map[string]model.User),
		byAadhaar: make(map[string]string),
		byGmail:   make(map[string]string),
	}
}

func gmailKey(g string) string { return strings.ToLower(strings.TrimSpace(g)) }

func (s *MemoryUsers) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
	}
	if _, ok := s.byAadhaar[u.Aadhaar]; ok {
		return fmt.Errorf("aadhaar: %w", ErrConflict)
	}
	g := gmailKey(u.Gmail)
	if g != "" {
		if _, ok := s.byGmail[g]; ok {
			return fmt.Errorf("gmail: %w", ErrConflict)
		}
		s.byGmail[g] = u.ID
	}
	s.byID[u.ID] = u
	s.byAadhaar[u.Aadhaar] = u.ID
	metrics.UpdateAthletesTotal(len(s.byID))
	return nil
}

func (s *MemoryUsers) Get(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

// Update replaces the stored user. Aadhaar and Gmail are immutable.
func (s *MemoryUsers) Update(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[u.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	u.Aadhaar, u.Gmail = old.Aadhaar, old.Gmail
	s.byID[u.ID] = u
	return nil
}

func (s *MemoryUsers) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryUsers) ByAadhaar(_ context.Context, aadhaar string) (model.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAadhaar[aadhaar]
	if !ok {
		return model.User{}, false, nil
	}
	return s.byID[id], true, nil
}

func (s *MemoryUsers) ByFirstName(_ context.Context, firstName string) ([]model.User, error) {
	name := strings.TrimSpace(firstName)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.User
	for _, u := range s.byID {
		if strings.EqualFold(u.FirstName, name) {
			out = append(out, u)
		}
	}
	return out, nil
}

// MemoryAthletes is a map-backed AthleteStore that remembers insertion order.
type MemoryAthletes struct {
	mu    sync.RWMutex
	byID  map[string]model.Athlete
	order []string
}

// NewMemoryAthletes returns an empty roster.
func NewMemoryAthletes() *MemoryAthletes {
	return &MemoryAthletes{byID: make(map[string]model.Athlete)}
}

func (s *MemoryAthletes) Upsert(_ context.Context, a model.Athlete) error {
	if a.ID == "" {
		return fmt.Errorf("athlete id: %w", ErrInvalidEntry)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.byID[a.ID] = a
	return nil
}

func (s *MemoryAthletes) Get(_ context.Context, id string) (model.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *MemoryAthletes) List(context.Context) ([]model.Athlete, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Athlete, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	return out, nil
}

func (s *MemoryAthletes) SetStatus(_ context.Context, id string, status model.ValidationStatus) (model.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Athlete{}, fmt.Errorf("athlete %s: %w", id, ErrNotFound)
	}
	a.ValidationStatus = status
	s.byID[id] = a
	return a, nil
}

// MemorySelections is a map-backed SelectionStore.
type MemorySelections struct {
	mu     sync.RWMutex
	byUser map[string]model.Selection
}

// NewMemorySelections returns an empty store.
func NewMemorySelections() *MemorySelections {
	return &MemorySelections{byUser: make(map[string]model.Selection)}
}

func (s *MemorySelections) Put(_ context.Context, sel model.Selection) error {
	s.mu.Lock()
	s.byUser[sel.UserID] = sel
	s.mu.Unlock()
	return nil
}

func (s *MemorySelections) Get(_ context.Context, userID string) (model.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.byUser[userID]
	if !ok {
		return model.Selection{}, fmt.Errorf("selection for %s: %w", userID, ErrNotFound)
	}
	return sel, nil
}

// MemoryProgress is a map-backed ProgressStore.
type MemoryProgress struct {
	mu     sync.Mutex
	byUser map[string]model.Progress
}

// NewMemoryProgress returns an empty store.
func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{byUser: make(map[string]model.Progress)}
}

func (s *MemoryProgress) Get(_ context.Context, userID string) (model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byUser[userID]
	if !ok {
		return model.Progress{}, fmt.Errorf("progress for %s: %w", userID, ErrNotFound)
	}
	return p, nil
}

func (s *MemoryProgress) Put(_ context.Context, p model.Progress) error {
	s.mu.Lock()
	s.byUser[p.UserID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryProgress) Apply(_ context.Context, userID string, fn func(model.Progress) (model.Progress, error)) (model.Progress, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byUser[userID]
	if !ok {
		cur = model.Progress{UserID: userID}
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	next.UserID = userID
	s.byUser[userID] = next
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	return next, nil
}

// MemoryJobs is a map-backed JobStore with completion waiters.
type MemoryJobs struct {
	mu   sync.Mutex
	jobs map[string]model.AnalysisJob
	done map[string]chan struct{}
}

// NewMemoryJobs returns an empty store.
func NewMemoryJobs() *MemoryJobs {
	return &MemoryJobs{
		jobs: make(map[string]model.AnalysisJob),
		done: make(map[string]chan struct{}),
	}
}

func (s *MemoryJobs) Put(_ context.Context, j model.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("job %s: %w", j.ID, ErrConflict)
	}
	s.jobs[j.ID] = j
	ch := make(chan struct{})
	if j.Status.Done() {
		close(ch)
	}
	s.done[j.ID] = ch
	return nil
}

func (s *MemoryJobs) Get(_ context.Context, id string) (model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return model.AnalysisJob{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, nil
}

func (s *MemoryJobs) Update(_ context.Context, id string, fn func(*model.AnalysisJob)) (model.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return model.AnalysisJob{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if j.Status.Done() {
		return j, nil
	}
	fn(&j)
	j.ID = id
	s.jobs[id] = j
	if j.Status.Done() {
		close(s.done[id])
	}
	return j, nil
}

func (s *MemoryJobs) Wait(ctx context.Context, id string) (model.AnalysisJob, error) {
	s.mu.Lock()
	ch, ok := s.done[id]
	s.mu.Unlock()
	if !ok {
		return model.AnalysisJob{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	select {
	case <-ch:
		return s.Get(ctx, id)
	case <-ctx.Done():
		return model.AnalysisJob{}, ctx.Err()
	}
}
