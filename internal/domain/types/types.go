// Package types contains request and response shapes shared by the service
// and the HTTP API.
package types

import (
	"io"
	"time"

	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/quiz"
)

// Session is returned by every journey call. Token carries the stage the
// server recorded, so the client must replace its token after each call.
type Session struct {
	Token         string         `json:"token"`
	UserID        string         `json:"userId"`
	Name          string         `json:"name"`
	Stage         pipeline.Stage `json:"stage"`
	Sport         string         `json:"sport,omitempty"`
	PhoneVerified bool           `json:"phoneVerified"`
}

// OTPChallenge describes an issued verification code. Code is only set when
// codes are echoed back instead of being sent by SMS.
type OTPChallenge struct {
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expiresAt"`
	Code      string    `json:"code,omitempty"`
}

// SelectionResult is the outcome of choosing a sport.
type SelectionResult struct {
	Selection model.Selection `json:"selection"`
	Session   Session         `json:"session"`
}

// QuizResult wraps the quiz view with a refreshed session.
type QuizResult struct {
	Quiz    quiz.State `json:"quiz"`
	Session Session    `json:"session"`
}

// FitnessResult is the fitness gate view. Form is the last submitted form
// so a blocked athlete can edit and resubmit it.
type FitnessResult struct {
	Form       *fitness.Form       `json:"form,omitempty"`
	Assessment *fitness.Assessment `json:"assessment,omitempty"`
	Score      int                 `json:"score"`
	Session    Session             `json:"session"`
}

// Upload is a video file handed to the service.
type Upload struct {
	Name           string
	Body           io.Reader
	Size           int64
	ContentType    string
	IdempotencyKey string
}

// UploadResult reports the job started (or found) for an upload.
type UploadResult struct {
	Job       model.AnalysisJob `json:"job"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Session   Session           `json:"session"`
}

// VideoEnvelope is the response body of the video analysis endpoint.
type VideoEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is the JSON error response.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// LeaderboardPage is a ranked slice of the board.
type LeaderboardPage struct {
	Entries []model.LeaderboardEntry `json:"entries"`
	Total   int                      `json:"total"`
}

// Stats is the service snapshot exposed on /api/v1/stats.
type Stats struct {
	Started       bool  `json:"started"`
	Workers       int   `json:"workers"`
	QueueCapacity int   `json:"queueCapacity"`
	QueueLength   int   `json:"queueLength"`
	DedupeSize    int64 `json:"dedupeSize"`
	Users         int   `json:"users"`
	Athletes      int   `json:"athletes"`
	Leaderboard   int   `json:"leaderboard"`
	QuizSessions  int   `json:"quizSessions"`
}
