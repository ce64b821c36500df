package quiz

import (
	"fmt"

	"github.com/okian/apas/internal/domain/scoring"
)

// DefaultPassPercent is the excellence threshold.
const DefaultPassPercent = 40

const passMessage = "You have successfully met the minimum excellence threshold and can proceed to the next stage."

// Result is the outcome of an attempt.
type Result struct {
	Sport        string   `json:"sport"`
	Score        int      `json:"score"`
	MaxScore     int      `json:"maxScore"`
	Percentage   int      `json:"percentage"`
	PassingScore int      `json:"passingScore"`
	Threshold    int      `json:"threshold"`
	Passed       bool     `json:"passed"`
	Message      string   `json:"message"`
	Suggestions  []string `json:"suggestions,omitempty"`
	NextSteps    []string `json:"nextSteps,omitempty"`
}

// Evaluate scores answers against bank using the default threshold.
func Evaluate(sportName string, bank scoring.Bank, answers scoring.Answers) Result {
	return EvaluateAt(sportName, bank, answers, DefaultPassPercent)
}

// EvaluateAt scores answers against bank with an explicit threshold percent.
func EvaluateAt(sportName string, bank scoring.Bank, answers scoring.Answers, threshold int) Result {
	maxScore := scoring.MaxScore(bank)
	raw := scoring.RawScore(bank, answers)
	pct := scoring.Percentage(raw, maxScore)

	r := Result{
		Sport:        sportName,
		Score:        raw,
		MaxScore:     maxScore,
		Percentage:   pct,
		PassingScore: scoring.PassingScore(maxScore, threshold),
		Threshold:    threshold,
		Passed:       scoring.Passes(pct, threshold),
	}
	if r.Passed {
		r.Message = passMessage
		r.NextSteps = []string{
			"Complete fitness details and health questionnaire",
			"Upload performance videos for AI analysis",
			"Receive personalized training recommendations",
		}
		return r
	}
	r.Message = fmt.Sprintf("You do not meet the minimum excellence threshold (%d%%). You cannot proceed further at this time.", threshold)
	r.Suggestions = Suggestions(sportName)
	return r
}

// Suggestions returns the improvement tips shown after a failed attempt.
func Suggestions(sportName string) []string {
	return []string{
		"Gain more training experience in " + sportName,
		"Study sport-specific techniques and rules",
		"Participate in local competitions to build experience",
		"Work with a qualified coach to improve skills",
		"Focus on physical conditioning and mental preparation",
	}
}
