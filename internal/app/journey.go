package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/quiz"
	"github.com/okian/apas/internal/domain/roster"
	"github.com/okian/apas/internal/domain/scoring"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
	"github.com/okian/apas/pkg/metrics"
)

// plan picks the events to apply from the stored progress.
type plan func(p model.Progress) ([]pipeline.Event, error)

func only(events ...pipeline.Event) plan {
	return func(model.Progress) ([]pipeline.Event, error) { return events, nil }
}

// advance moves userID through the pipeline inside one atomic progress
// update. When claims are given they must match the stored stage. commit
// runs after every transition was accepted and before the write; its error
// aborts the update.
func (s *Service) advance(ctx context.Context, userID string, claims *pipeline.Claims, pl plan, commit func(p *model.Progress) error) (model.Progress, error) {
	var from pipeline.Stage
	p, err := s.progress.Apply(ctx, userID, func(p model.Progress) (model.Progress, error) {
		if claims != nil {
			if err := pipeline.Verify(claims, p.Stage); err != nil {
				return p, err
			}
		}
		events, err := pl(p)
		if err != nil {
			return p, err
		}
		from = p.Stage
		next := p
		for _, e := range events {
			if next.Stage, err = pipeline.Transition(next.Stage, e); err != nil {
				return p, err
			}
		}
		if commit != nil {
			if err := commit(&next); err != nil {
				return p, err
			}
		}
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrStaleToken) || errors.Is(err, pipeline.ErrInvalidTransition) {
			metrics.RecordRejectedSkip()
			s.log().Debug(ctx, "stage change rejected",
				logger.String("user_id", userID),
				logger.Error(err),
			)
		}
		return p, err
	}
	if from != p.Stage {
		metrics.RecordStageTransition(string(from), string(p.Stage))
	}
	return p, nil
}

// current loads progress and checks claims against it without changing it.
func (s *Service) current(ctx context.Context, claims *pipeline.Claims) (model.Progress, error) {
	p, err := s.progress.Get(ctx, claims.Subject)
	if err != nil {
		return p, err
	}
	if err := pipeline.Verify(claims, p.Stage); err != nil {
		metrics.RecordRejectedSkip()
		return p, err
	}
	return p, nil
}

// updateAthlete edits the roster profile of userID and recomputes the
// overall score once the video score exists.
func (s *Service) updateAthlete(ctx context.Context, userID string, fn func(a *model.Athlete)) {
	a, err := s.athletes.Get(ctx, userID)
	if err != nil {
		s.log().Warn(ctx, "roster profile missing", logger.String("user_id", userID), logger.Error(err))
		return
	}
	fn(&a)
	a.OverallScore = 0
	if a.VideoAnalysisScore > 0 {
		a.OverallScore = roster.OverallScore(a.ExcellenceScore, a.FitnessScore, a.VideoAnalysisScore)
	}
	if err := s.athletes.Upsert(ctx, a); err != nil {
		metrics.RecordErrorByComponent("roster", "upsert")
		s.log().Error(ctx, "roster update failed", logger.String("user_id", userID), logger.Error(err))
	}
}

func validSkill(level string) bool {
	switch level {
	case model.SkillBeginner, model.SkillIntermediate, model.SkillAdvanced:
		return true
	}
	return false
}

// SelectSport records the athlete's sport and skill level and restarts the
// pipeline from the sport-selected stage.
func (s *Service) SelectSport(ctx context.Context, claims *pipeline.Claims, sportID, skill string) (types.SelectionResult, error) {
	sport, err := s.catalog.Sport(sportID)
	if err != nil {
		return types.SelectionResult{}, err
	}
	skill = strings.TrimSpace(skill)
	if !validSkill(skill) {
		return types.SelectionResult{}, fmt.Errorf("%w: %q", types.ErrInvalidSkill, skill)
	}

	sel := model.Selection{
		UserID:     claims.Subject,
		SportID:    sport.ID,
		SportName:  sport.Name,
		SkillLevel: skill,
		SelectedAt: s.now().UTC(),
	}
	p, err := s.advance(ctx, claims.Subject, claims, only(pipeline.SelectSport), func(p *model.Progress) error {
		p.Sport = sport.ID
		return s.selections.Put(ctx, sel)
	})
	if err != nil {
		return types.SelectionResult{}, err
	}
	metrics.RecordSportSelection(sport.ID, skill)

	s.attemptsMu.Lock()
	delete(s.attempts, claims.Subject)
	s.attemptsMu.Unlock()
	s.formsMu.Lock()
	delete(s.forms, claims.Subject)
	s.formsMu.Unlock()

	s.updateAthlete(ctx, claims.Subject, func(a *model.Athlete) {
		a.Sport = sport.Name
		a.ExcellenceScore = 0
		a.FitnessScore = 0
		a.VideoAnalysisScore = 0
		a.HealthStatus = ""
		a.Tier = analysis.TierBeginner
	})

	sess, err := s.refresh(ctx, p.UserID)
	if err != nil {
		return types.SelectionResult{}, err
	}
	return types.SelectionResult{Selection: sel, Session: sess}, nil
}

// Selection returns the athlete's active sport choice.
func (s *Service) Selection(ctx context.Context, claims *pipeline.Claims) (model.Selection, error) {
	return s.selections.Get(ctx, claims.Subject)
}

// StartQuiz opens (or resumes) the excellence quiz for the selected sport.
func (s *Service) StartQuiz(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error) {
	p, err := s.advance(ctx, claims.Subject, claims, only(pipeline.StartQuiz), nil)
	if err != nil {
		return types.QuizResult{}, err
	}

	s.attemptsMu.Lock()
	a, ok := s.attempts[p.UserID]
	if !ok || a.sport != p.Sport {
		sess, err := quiz.NewSession(s.catalog.DisplayName(p.Sport), s.catalog.Bank(p.Sport), quiz.WithThreshold(s.catalog.PassPercent()))
		if err != nil {
			s.attemptsMu.Unlock()
			return types.QuizResult{}, err
		}
		a = &quizAttempt{sport: p.Sport, session: sess}
		s.attempts[p.UserID] = a
	}
	st := a.session.State()
	s.attemptsMu.Unlock()

	return s.quizResult(ctx, p.UserID, st)
}

// QuizState returns the live attempt, or its result once finished.
func (s *Service) QuizState(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error) {
	if _, err := s.current(ctx, claims); err != nil {
		return types.QuizResult{}, err
	}
	s.attemptsMu.Lock()
	a, ok := s.attempts[claims.Subject]
	var st quiz.State
	if ok {
		st = a.session.State()
	}
	s.attemptsMu.Unlock()
	if !ok {
		return types.QuizResult{}, types.ErrNoQuiz
	}
	return s.quizResult(ctx, claims.Subject, st)
}

// AnswerQuestion records the option chosen for a question.
func (s *Service) AnswerQuestion(ctx context.Context, claims *pipeline.Claims, questionID, option string) (types.QuizResult, error) {
	return s.onAttempt(ctx, claims, func(sess *quiz.Session) error {
		return sess.Answer(questionID, option)
	})
}

// PreviousQuestion steps back one question.
func (s *Service) PreviousQuestion(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error) {
	return s.onAttempt(ctx, claims, func(sess *quiz.Session) error { return sess.Previous() })
}

// NextQuestion advances the attempt. Moving past the last question scores
// it and passes or fails the quiz stage.
func (s *Service) NextQuestion(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error) {
	res, err := s.onAttempt(ctx, claims, func(sess *quiz.Session) error { return sess.Next() })
	if err != nil || res.Quiz.Result == nil {
		return res, err
	}
	return s.finishQuiz(ctx, claims, *res.Quiz.Result, res.Quiz)
}

// SubmitQuiz scores a whole answer sheet at once. With no answers it
// finalises the live attempt, which must already be complete.
func (s *Service) SubmitQuiz(ctx context.Context, claims *pipeline.Claims, answers scoring.Answers) (types.QuizResult, error) {
	p, err := s.current(ctx, claims)
	if err != nil {
		return types.QuizResult{}, err
	}

	if len(answers) == 0 {
		s.attemptsMu.Lock()
		a, ok := s.attempts[p.UserID]
		var st quiz.State
		if ok {
			st = a.session.State()
		}
		s.attemptsMu.Unlock()
		switch {
		case !ok:
			return types.QuizResult{}, types.ErrNoQuiz
		case st.Result == nil:
			return types.QuizResult{}, types.ErrQuizIncomplete
		}
		return s.finishQuiz(ctx, claims, *st.Result, st)
	}

	bank := s.catalog.Bank(p.Sport)
	res, err := quiz.Submit(s.catalog.DisplayName(p.Sport), bank, answers, quiz.WithThreshold(s.catalog.PassPercent()))
	if err != nil {
		if errors.Is(err, quiz.ErrUnanswered) {
			return types.QuizResult{}, fmt.Errorf("%w: %w", types.ErrQuizIncomplete, err)
		}
		return types.QuizResult{}, err
	}
	st := quiz.State{
		Sport:   res.Sport,
		Phase:   quiz.PhaseResults,
		Index:   len(bank) - 1,
		Total:   len(bank),
		Answers: answers,
		Result:  &res,
	}

	events := []pipeline.Event{pipeline.FailQuiz}
	if res.Passed {
		events[0] = pipeline.PassQuiz
	}
	if p.Stage == pipeline.SportSelected {
		events = append([]pipeline.Event{pipeline.StartQuiz}, events...)
	}
	return s.recordQuiz(ctx, claims, res, st, events)
}

func (s *Service) finishQuiz(ctx context.Context, claims *pipeline.Claims, res quiz.Result, st quiz.State) (types.QuizResult, error) {
	e := pipeline.FailQuiz
	if res.Passed {
		e = pipeline.PassQuiz
	}
	return s.recordQuiz(ctx, claims, res, st, []pipeline.Event{e})
}

func (s *Service) recordQuiz(ctx context.Context, claims *pipeline.Claims, res quiz.Result, st quiz.State, events []pipeline.Event) (types.QuizResult, error) {
	p, err := s.advance(ctx, claims.Subject, claims, only(events...), nil)
	if err != nil {
		return types.QuizResult{}, err
	}
	metrics.RecordQuizOutcome(p.Sport, res.Passed, res.Percentage)
	s.log().Info(ctx, "quiz evaluated",
		logger.String("user_id", p.UserID),
		logger.String("sport", p.Sport),
		logger.Int("percentage", res.Percentage),
		logger.Bool("passed", res.Passed),
	)

	s.updateAthlete(ctx, p.UserID, func(a *model.Athlete) {
		a.ExcellenceScore = res.Percentage
	})
	return s.quizResult(ctx, p.UserID, st)
}

// onAttempt runs fn on the live attempt while the stored stage is the quiz.
func (s *Service) onAttempt(ctx context.Context, claims *pipeline.Claims, fn func(sess *quiz.Session) error) (types.QuizResult, error) {
	p, err := s.current(ctx, claims)
	if err != nil {
		return types.QuizResult{}, err
	}
	if p.Stage != pipeline.QuizInProgress {
		return types.QuizResult{}, fmt.Errorf("%w: stage is %s", types.ErrNoQuiz, p.Stage)
	}

	s.attemptsMu.Lock()
	a, ok := s.attempts[p.UserID]
	if !ok {
		s.attemptsMu.Unlock()
		return types.QuizResult{}, types.ErrNoQuiz
	}
	err = fn(a.session)
	st := a.session.State()
	s.attemptsMu.Unlock()
	if err != nil {
		return types.QuizResult{}, err
	}
	return s.quizResult(ctx, p.UserID, st)
}

func (s *Service) quizResult(ctx context.Context, userID string, st quiz.State) (types.QuizResult, error) {
	sess, err := s.refresh(ctx, userID)
	if err != nil {
		return types.QuizResult{}, err
	}
	return types.QuizResult{Quiz: st, Session: sess}, nil
}

// FitnessState returns the last submitted form and its assessment.
func (s *Service) FitnessState(ctx context.Context, claims *pipeline.Claims) (types.FitnessResult, error) {
	if _, err := s.current(ctx, claims); err != nil {
		return types.FitnessResult{}, err
	}
	return s.fitnessResult(ctx, claims.Subject)
}

// SubmitFitness assesses the health questionnaire. A valid form clears or
// blocks the athlete; field errors leave the stage unchanged. A cleared
// athlete may resubmit an edited form.
func (s *Service) SubmitFitness(ctx context.Context, claims *pipeline.Claims, form fitness.Form) (types.FitnessResult, error) {
	assessment, err := fitness.Assess(form)
	if err != nil {
		return types.FitnessResult{}, err
	}

	outcome := pipeline.ClearFitness
	if assessment.IsBlocked {
		outcome = pipeline.BlockFitness
	}
	pl := func(p model.Progress) ([]pipeline.Event, error) {
		if p.Stage == pipeline.FitnessFormInProgress {
			return []pipeline.Event{outcome}, nil
		}
		return []pipeline.Event{pipeline.StartFitness, outcome}, nil
	}
	p, err := s.advance(ctx, claims.Subject, claims, pl, nil)
	if err != nil {
		return types.FitnessResult{}, err
	}
	metrics.RecordFitnessOutcome(assessment.IsBlocked, assessment.BlockingReasons)

	s.formsMu.Lock()
	s.forms[p.UserID] = fitnessRecord{form: form, assessment: assessment}
	s.formsMu.Unlock()

	score := fitness.Score(assessment)
	s.updateAthlete(ctx, p.UserID, func(a *model.Athlete) {
		a.FitnessScore = score
		a.HealthStatus = healthStatus(assessment)
		if assessment.IsBlocked {
			a.ValidationStatus = model.StatusUnderReview
		}
	})

	s.log().Info(ctx, "fitness assessed",
		logger.String("user_id", p.UserID),
		logger.Bool("blocked", assessment.IsBlocked),
		logger.Float64("bmi", assessment.BMI),
	)
	return s.fitnessResult(ctx, p.UserID)
}

// RetryFitness reopens the questionnaire for a blocked athlete.
func (s *Service) RetryFitness(ctx context.Context, claims *pipeline.Claims) (types.FitnessResult, error) {
	p, err := s.advance(ctx, claims.Subject, claims, only(pipeline.RetryFitness), nil)
	if err != nil {
		return types.FitnessResult{}, err
	}
	return s.fitnessResult(ctx, p.UserID)
}

func (s *Service) fitnessResult(ctx context.Context, userID string) (types.FitnessResult, error) {
	sess, err := s.refresh(ctx, userID)
	if err != nil {
		return types.FitnessResult{}, err
	}
	out := types.FitnessResult{Session: sess}

	s.formsMu.Lock()
	rec, ok := s.forms[userID]
	s.formsMu.Unlock()
	if ok {
		form, assessment := rec.form, rec.assessment
		out.Form = &form
		out.Assessment = &assessment
		out.Score = fitness.Score(assessment)
	}
	return out, nil
}

// healthStatus maps an assessment to the reviewer's health label.
// Regular substance use blocks outright; other reasons need a medical review.
func healthStatus(a fitness.Assessment) model.HealthStatus {
	if !a.IsBlocked {
		return model.HealthCleared
	}
	for _, r := range a.BlockingReasons {
		if r == fitness.ReasonSubstances {
			return model.HealthBlocked
		}
	}
	return model.HealthMedicalReview
}

// athleteLocation is the leaderboard location of a user.
func athleteLocation(ctx context.Context, users repository.UserStore, userID string) (model.User, string) {
	u, err := users.Get(ctx, userID)
	if err != nil {
		return model.User{ID: userID}, ""
	}
	if u.District != "" {
		return u, u.District
	}
	return u, u.State
}
