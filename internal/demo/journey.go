package demo

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/quiz"
	"github.com/okian/apas/internal/domain/scoring"
	"github.com/okian/apas/internal/domain/types"
)

const (
	digits      = "0123456789"
	lowerAlnum  = "abcdefghijklmnopqrstuvwxyz0123456789"
	videoBytes  = 4096
	demoPasswd  = "demo-pass-123"
	demoPincode = "110001"
)

var (
	firstNames = []string{"Aarav", "Diya", "Kabir", "Meera", "Rohan", "Saanvi", "Vihaan", "Anaya", "Arjun", "Isha"}
	skills     = []string{model.SkillBeginner, model.SkillIntermediate, model.SkillAdvanced}
)

// athlete is one simulated sign-up.
type athlete struct {
	n     int
	reg   account.Registration
	sport catalog.Sport
	skill string
	sess  types.Session
}

// videoData mirrors the data member of a finished synchronous upload.
type videoData struct {
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	OverallScore int    `json:"overallScore"`
	Rank         int    `json:"rank"`
}

type videoEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    videoData `json:"data"`
}

// newAthlete builds a registration with unique identifiers.
func newAthlete(n int, sports []catalog.Sport, states []string) (*athlete, error) {
	aadhaar, err := gonanoid.Generate(digits, 12)
	if err != nil {
		return nil, err
	}
	phone, err := gonanoid.Generate(digits, 9)
	if err != nil {
		return nil, err
	}
	handle, err := gonanoid.Generate(lowerAlnum, 8)
	if err != nil {
		return nil, err
	}
	first := firstNames[n%len(firstNames)]
	state := states[n%len(states)]
	return &athlete{
		n: n,
		reg: account.Registration{
			FirstName:       first,
			LastName:        "Demo",
			Gmail:           strings.ToLower(first) + "." + handle + "@gmail.com",
			Aadhaar:         aadhaar,
			Phone:           "9" + phone,
			Password:        demoPasswd,
			ConfirmPassword: demoPasswd,
			State:           state,
			District:        state,
			City:            state,
			Pincode:         demoPincode,
			AgreeToTerms:    true,
		},
		sport: sports[n%len(sports)],
		skill: skills[n%len(skills)],
	}, nil
}

// walk drives a until it has a leaderboard rank. Each step replaces the
// session token with the one the server just issued.
func (r *runner) walk(ctx context.Context, a *athlete) error {
	c := r.client

	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/register", "", a.reg, &a.sess, http.StatusCreated); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	atomic.AddInt64(&r.stats.Registered, 1)
	r.trace(ctx, a, "registered")

	var challenge types.OTPChallenge
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/otp/send", a.sess.Token, nil, &challenge); err != nil {
		return fmt.Errorf("otp send: %w", err)
	}
	// Codes are only echoed when the portal runs without an SMS gateway.
	if challenge.Code != "" {
		if err := c.call(ctx, http.MethodPost, "/api/v1/auth/otp/verify", a.sess.Token,
			map[string]string{"code": challenge.Code}, &a.sess); err != nil {
			return fmt.Errorf("otp verify: %w", err)
		}
		atomic.AddInt64(&r.stats.Verified, 1)
	}

	var sel types.SelectionResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/selection", a.sess.Token,
		map[string]string{"sport": a.sport.ID, "skillLevel": a.skill}, &sel); err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	a.sess = sel.Session

	if err := r.takeQuiz(ctx, a); err != nil {
		return err
	}

	var fit types.FitnessResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/fitness", a.sess.Token, healthyForm(), &fit); err != nil {
		return fmt.Errorf("fitness: %w", err)
	}
	a.sess = fit.Session
	if a.sess.Stage != pipeline.FitnessCleared {
		return fmt.Errorf("fitness: stage %s", a.sess.Stage)
	}
	atomic.AddInt64(&r.stats.Cleared, 1)
	r.trace(ctx, a, "fitness cleared")

	video := make([]byte, videoBytes)
	if _, err := rand.Read(video); err != nil {
		return err
	}
	var env videoEnvelope
	name := fmt.Sprintf("demo-%d.mp4", a.n)
	if err := c.upload(ctx, "/api/v1/video-analysis", a.sess.Token, name, video, &env); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if !env.Success || env.Data.Status != string(model.JobCompleted) {
		return fmt.Errorf("upload: %s", env.Message)
	}
	atomic.AddInt64(&r.stats.Analyzed, 1)
	r.trace(ctx, a, "video analyzed")

	var entry model.LeaderboardEntry
	if err := c.call(ctx, http.MethodGet, "/api/v1/leaderboard/"+a.sess.UserID, "", nil, &entry); err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	if entry.Rank <= 0 {
		return fmt.Errorf("rank: athlete %s not placed", a.sess.UserID)
	}
	atomic.AddInt64(&r.stats.Ranked, 1)
	return nil
}

// takeQuiz answers every question with its highest scoring option.
func (r *runner) takeQuiz(ctx context.Context, a *athlete) error {
	c := r.client
	var res types.QuizResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/quiz/start", a.sess.Token, nil, &res); err != nil {
		return fmt.Errorf("quiz start: %w", err)
	}
	a.sess = res.Session

	for i := 0; res.Quiz.Phase == quiz.PhasePresenting; i++ {
		if i > res.Quiz.Total {
			return fmt.Errorf("quiz: no result after %d questions", res.Quiz.Total)
		}
		q := res.Quiz.Question
		if q == nil {
			return fmt.Errorf("quiz: question %d missing", res.Quiz.Index)
		}
		if err := c.call(ctx, http.MethodPost, "/api/v1/quiz/answer", a.sess.Token,
			map[string]string{"questionId": q.ID, "option": best(*q)}, &res); err != nil {
			return fmt.Errorf("quiz answer: %w", err)
		}
		a.sess = res.Session
		if err := c.call(ctx, http.MethodPost, "/api/v1/quiz/next", a.sess.Token, nil, &res); err != nil {
			return fmt.Errorf("quiz next: %w", err)
		}
		a.sess = res.Session
	}

	if res.Quiz.Result == nil || !res.Quiz.Result.Passed {
		return fmt.Errorf("quiz: not passed, stage %s", a.sess.Stage)
	}
	atomic.AddInt64(&r.stats.QuizPassed, 1)
	r.trace(ctx, a, "quiz passed")
	return nil
}

func best(q scoring.Question) string {
	if len(q.Options) == 0 {
		return ""
	}
	choice := q.Options[0]
	for _, o := range q.Options[1:] {
		if o.Points > choice.Points {
			choice = o
		}
	}
	return choice.Text
}

func healthyForm() fitness.Form {
	return fitness.Form{
		Height:         "172",
		Weight:         "64",
		ChronicDisease: fitness.No,
		Injury:         fitness.No,
		Substances:     fitness.No,
		Stress:         fitness.StressNever,
		Medications:    fitness.No,
	}
}
