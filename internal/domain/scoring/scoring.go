// Package scoring holds the pure arithmetic behind quiz banks: maximum score,
// raw score of a set of answers, percentage and pass threshold.
package scoring

import "math"

const maxPercentage = 100

// Option is one selectable answer of a question.
type Option struct {
	Text   string `json:"text" koanf:"text"`
	Points int    `json:"points" koanf:"points"`
}

// Question is a single multiple-choice item.
type Question struct {
	ID      string   `json:"id" koanf:"id"`
	Text    string   `json:"question" koanf:"question"`
	Options []Option `json:"options" koanf:"options"`
}

// Points returns the points of the option with the given text.
func (q Question) Points(text string) (int, bool) {
	for _, o := range q.Options {
		if o.Text == text {
			return o.Points, true
		}
	}
	return 0, false
}

// Best returns the highest option points of the question.
func (q Question) Best() int {
	best := 0
	for _, o := range q.Options {
		if o.Points > best {
			best = o.Points
		}
	}
	return best
}

// Bank is an ordered list of questions for one sport.
type Bank []Question

// Find returns the question with the given id.
func (b Bank) Find(id string) (Question, bool) {
	for _, q := range b {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answers maps question id to the selected option text.
type Answers map[string]string

// MaxScore sums the best option of every question in the bank.
func MaxScore(bank Bank) int {
	total := 0
	for _, q := range bank {
		total += q.Best()
	}
	return total
}

// RawScore sums the points of each selected option. Unknown questions or
// options contribute nothing.
func RawScore(bank Bank, answers Answers) int {
	total := 0
	for _, q := range bank {
		text, ok := answers[q.ID]
		if !ok {
			continue
		}
		if pts, ok := q.Points(text); ok {
			total += pts
		}
	}
	return total
}

// Percentage returns round(100*raw/max) clamped to [0,100]. A zero max yields 0.
func Percentage(raw, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	pct := int(math.Round(float64(raw) * maxPercentage / float64(maxScore)))
	switch {
	case pct < 0:
		return 0
	case pct > maxPercentage:
		return maxPercentage
	}
	return pct
}

// PassingScore is the minimum raw score whose Percentage reaches percent.
// Percentage rounds half up, so the cut is at percent-0.5 of maxScore.
func PassingScore(maxScore, percent int) int {
	if maxScore <= 0 || percent <= 0 {
		return 0
	}
	percent = min(percent, maxPercentage)
	return ((2*percent-1)*maxScore + 2*maxPercentage - 1) / (2 * maxPercentage)
}

// Passes reports whether percentage meets threshold.
func Passes(percentage, threshold int) bool {
	return percentage >= threshold
}
