// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/pipeline"
)

// User is a registered account. PasswordHash is a bcrypt hash.
type User struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Gmail         string    `json:"gmail,omitempty"`
	Aadhaar       string    `json:"aadhaar"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	State         string    `json:"state"`
	District      string    `json:"district"`
	City          string    `json:"city"`
	Pincode       string    `json:"pincode"`
	PhoneVerified bool      `json:"phoneVerified"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

// FullName joins first and last name.
func (u User) FullName() string { return u.FirstName + " " + u.LastName }

// ValidationStatus is the admin review state of an athlete.
type ValidationStatus string

const (
	StatusValidated   ValidationStatus = "Validated"
	StatusPending     ValidationStatus = "Pending"
	StatusRejected    ValidationStatus = "Rejected"
	StatusUnderReview ValidationStatus = "Under Review"
)

// Valid reports whether s is a known status.
func (s ValidationStatus) Valid() bool {
	switch s {
	case StatusValidated, StatusPending, StatusRejected, StatusUnderReview:
		return true
	}
	return false
}

// HealthStatus summarises the fitness gate for reviewers.
type HealthStatus string

const (
	HealthCleared       HealthStatus = "Cleared"
	HealthMedicalReview HealthStatus = "Medical Review Required"
	HealthBlocked       HealthStatus = "Blocked"
)

// Athlete is the admin roster profile.
type Athlete struct {
	ID                 string           `json:"id"`
	FirstName          string           `json:"firstName"`
	LastName           string           `json:"lastName"`
	Sport              string           `json:"sport"`
	State              string           `json:"state"`
	District           string           `json:"district"`
	RegistrationDate   time.Time        `json:"registrationDate"`
	ValidationStatus   ValidationStatus `json:"validationStatus"`
	ExcellenceScore    int              `json:"excellenceScore"`
	FitnessScore       int              `json:"fitnessScore"`
	VideoAnalysisScore int              `json:"videoAnalysisScore"`
	OverallScore       int              `json:"overallScore"`
	Tier               string           `json:"tier"`
	Age                int              `json:"age,omitempty"`
	Phone              string           `json:"phone"`
	Email              string           `json:"email,omitempty"`
	Aadhaar            string           `json:"aadhaar"`
	HealthStatus       HealthStatus     `json:"healthStatus"`
}

// Skill levels offered on sport selection.
const (
	SkillBeginner     = "Beginner"
	SkillIntermediate = "Intermediate"
	SkillAdvanced     = "Advanced"
)

// Selection is the single active sport choice of a user.
type Selection struct {
	UserID     string    `json:"userId"`
	SportID    string    `json:"sportId"`
	SportName  string    `json:"sportName"`
	SkillLevel string    `json:"skillLevel"`
	SelectedAt time.Time `json:"selectedAt"`
}

// Progress is the authoritative pipeline stage of a user.
type Progress struct {
	UserID    string         `json:"userId"`
	Stage     pipeline.Stage `json:"stage"`
	Sport     string         `json:"sport,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	AthleteID string `json:"athleteId"`
	Name      string `json:"name"`
	Sport     string `json:"sport"`
	Score     int    `json:"score"`
	Tier      string `json:"tier"`
	Location  string `json:"location"`
}

// JobStatus is the lifecycle of an analysis job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Done reports whether the job reached a final status.
func (s JobStatus) Done() bool { return s == JobCompleted || s == JobFailed }

// Video is a stored upload.
type Video struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Path        string `json:"-"`
	URL         string `json:"url,omitempty"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// AnalysisJob tracks one uploaded video through scoring.
type AnalysisJob struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Sport     string           `json:"sport"`
	Video     Video            `json:"video"`
	Status    JobStatus        `json:"status"`
	Step      string           `json:"step"`
	Progress  int              `json:"progress"`
	Result    *analysis.Result `json:"result,omitempty"`
	Rank      int              `json:"rank,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Ref converts the stored video into the scorer's input.
func (v Video) Ref() analysis.VideoRef {
	return analysis.VideoRef{Name: v.Name, Key: v.Key, Path: v.Path, Size: v.Size, ContentType: v.ContentType}
}
