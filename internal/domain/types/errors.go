package types

import "errors"

var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidSkill is returned for a skill level outside Beginner/Intermediate/Advanced.
	ErrInvalidSkill = errors.New("invalid skill level")
	// ErrNoQuiz is returned when no quiz attempt exists for the athlete.
	ErrNoQuiz = errors.New("no quiz in progress")
	// ErrQuizIncomplete is returned when submitting an attempt that has unanswered questions left.
	ErrQuizIncomplete = errors.New("quiz has unanswered questions")
	// ErrNoFile is returned for an upload without a video.
	ErrNoFile = errors.New("No file uploaded")
	// ErrInvalidStatus is returned for an unknown validation status.
	ErrInvalidStatus = errors.New("invalid validation status")
	// ErrDuplicateUpload is returned when an idempotency key belongs to another athlete.
	ErrDuplicateUpload = errors.New("idempotency key already used")
)
