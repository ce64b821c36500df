// Package quiz runs the excellence assessment: a forward-only question
// walk that ends in a scored Result.
package quiz

import (
	"fmt"
	"maps"

	"github.com/okian/apas/internal/domain/scoring"
)

// Phase is where a session stands.
type Phase string

const (
	PhasePresenting Phase = "presenting"
	PhaseResults    Phase = "results"
)

// State is a read-only view of a session.
type State struct {
	Sport    string            `json:"sport"`
	Phase    Phase             `json:"phase"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Question *scoring.Question `json:"question,omitempty"`
	Answers  scoring.Answers   `json:"answers"`
	Result   *Result           `json:"result,omitempty"`
}

// Session is a single attempt. It is not safe for concurrent use.
type Session struct {
	sport     string
	bank      scoring.Bank
	threshold int
	index     int
	answers   scoring.Answers
	result    *Result
}

// SessionOption configures NewSession.
type SessionOption func(*Session)

// WithThreshold overrides the pass percent.
func WithThreshold(percent int) SessionOption {
	return func(s *Session) {
		if percent > 0 {
			s.threshold = percent
		}
	}
}

// NewSession starts an attempt at the first question.
func NewSession(sportName string, bank scoring.Bank, opts ...SessionOption) (*Session, error) {
	if len(bank) == 0 {
		return nil, ErrEmptyBank
	}
	s := &Session{
		sport:     sportName,
		bank:      bank,
		threshold: DefaultPassPercent,
		answers:   make(scoring.Answers, len(bank)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Answer records, or overwrites, the option chosen for a question.
func (s *Session) Answer(questionID, option string) error {
	if s.result != nil {
		return ErrFinished
	}
	q, ok := s.bank.Find(questionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, questionID)
	}
	if _, ok := q.Points(option); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}
	s.answers[questionID] = option
	return nil
}

// Next advances to the following question, or to results after the last one.
func (s *Session) Next() error {
	if s.result != nil {
		return ErrFinished
	}
	if _, ok := s.answers[s.bank[s.index].ID]; !ok {
		return ErrUnanswered
	}
	if s.index < len(s.bank)-1 {
		s.index++
		return nil
	}
	r := EvaluateAt(s.sport, s.bank, s.answers, s.threshold)
	s.result = &r
	return nil
}

// Previous steps back one question. It never clears answers.
func (s *Session) Previous() error {
	if s.result != nil {
		return ErrFinished
	}
	if s.index > 0 {
		s.index--
	}
	return nil
}

// Current returns the question being presented.
func (s *Session) Current() scoring.Question {
	return s.bank[s.index]
}

// Result returns the outcome once the session reached results.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// State snapshots the session.
func (s *Session) State() State {
	st := State{
		Sport:   s.sport,
		Phase:   PhasePresenting,
		Index:   s.index,
		Total:   len(s.bank),
		Answers: maps.Clone(s.answers),
	}
	if s.result != nil {
		st.Phase = PhaseResults
		r := *s.result
		st.Result = &r
		return st
	}
	q := s.Current()
	st.Question = &q
	return st
}

// Submit walks a fresh session through every question in order with the
// given answers, as a single-form submission would.
func Submit(sportName string, bank scoring.Bank, answers scoring.Answers, opts ...SessionOption) (Result, error) {
	s, err := NewSession(sportName, bank, opts...)
	if err != nil {
		return Result{}, err
	}
	for _, q := range bank {
		if text, ok := answers[q.ID]; ok {
			if err := s.Answer(q.ID, text); err != nil {
				return Result{}, err
			}
		}
		if err := s.Next(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", q.ID, err)
		}
	}
	r, _ := s.Result()
	return r, nil
}
