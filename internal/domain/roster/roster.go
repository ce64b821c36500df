// Package roster implements the admin review surface: filtering, summary
// counts and exports of athlete profiles.
package roster

import (
	"math"
	"strings"

	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/model"
)

// Sentinel filter values meaning "no filter".
const (
	AllSports = "All Sports"
	AllStates = "All States"
	AllStatus = "All Status"
)

// Filter narrows the roster. All criteria are combined with AND.
type Filter struct {
	Search string
	Sport  string
	State  string
	Status string
}

func (f Filter) matches(a model.Athlete) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(a.FirstName), q) &&
			!strings.Contains(strings.ToLower(a.LastName), q) &&
			!strings.Contains(strings.ToLower(a.ID), q) {
			return false
		}
	}
	if !unset(f.Sport, AllSports) && a.Sport != f.Sport {
		return false
	}
	if !unset(f.State, AllStates) && a.State != f.State {
		return false
	}
	if !unset(f.Status, AllStatus) && string(a.ValidationStatus) != f.Status {
		return false
	}
	return true
}

func unset(v, sentinel string) bool { return v == "" || v == sentinel }

// Apply returns the athletes matching f, keeping order.
func Apply(athletes []model.Athlete, f Filter) []model.Athlete {
	out := make([]model.Athlete, 0, len(athletes))
	for _, a := range athletes {
		if f.matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// Summary holds the dashboard counters.
type Summary struct {
	Total     int `json:"total"`
	Validated int `json:"validated"`
	Pending   int `json:"pending"`
	Advanced  int `json:"advanced"`
}

// Summarize counts athletes by review state and tier.
func Summarize(athletes []model.Athlete) Summary {
	s := Summary{Total: len(athletes)}
	for _, a := range athletes {
		switch a.ValidationStatus {
		case model.StatusValidated:
			s.Validated++
		case model.StatusPending, model.StatusUnderReview:
			s.Pending++
		}
		if a.Tier == analysis.TierAdvanced {
			s.Advanced++
		}
	}
	return s
}

// OverallScore is the rounded mean of the three stage scores.
func OverallScore(excellence, fitness, video int) int {
	return int(math.Round(float64(excellence+fitness+video) / 3))
}
