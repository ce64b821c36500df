package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/apas/internal/adapters/mq/queue"
	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/adapters/storage"
	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/quiz"
	"github.com/okian/apas/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrServe        = errors.New("serve failed")
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")
)

// opError ties an operation name to an error kind and its cause.
// errors.Is matches both the kind and the cause.
type opError struct {
	op    string
	kind  error
	cause error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.cause != nil:
		return e.op + ": " + e.kind.Error() + ": " + e.cause.Error()
	case e.kind != nil:
		return e.op + ": " + e.kind.Error()
	case e.cause != nil:
		return e.op + ": " + e.cause.Error()
	}
	return e.op
}

func (e *opError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Wrap prefixes err with op. Returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, cause: err}
}

// WrapKind classifies err under kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, cause: err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// failure is the HTTP rendering of an error.
type failure struct {
	status int
	code   string
}

// classify maps domain errors onto HTTP statuses. Order matters: the more
// specific kinds are checked first.
func classify(err error) failure {
	switch {
	case errors.Is(err, account.ErrInvalidForm), errors.Is(err, fitness.ErrInvalidForm):
		return failure{http.StatusBadRequest, "invalid_form"}
	case errors.Is(err, ErrBadRequest), errors.Is(err, storage.ErrEmptyName):
		return failure{http.StatusBadRequest, "bad_request"}
	case errors.Is(err, types.ErrNoFile):
		return failure{http.StatusBadRequest, "no_file"}
	case errors.Is(err, types.ErrInvalidSkill):
		return failure{http.StatusBadRequest, "invalid_skill"}
	case errors.Is(err, types.ErrInvalidStatus):
		return failure{http.StatusBadRequest, "invalid_status"}
	case errors.Is(err, catalog.ErrUnknownSport):
		return failure{http.StatusBadRequest, "unknown_sport"}
	case errors.Is(err, repository.ErrInvalidLimit):
		return failure{http.StatusBadRequest, "invalid_limit"}
	case errors.Is(err, quiz.ErrUnanswered), errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrUnknownOption), errors.Is(err, quiz.ErrEmptyBank):
		return failure{http.StatusBadRequest, "invalid_answer"}
	case errors.Is(err, account.ErrInvalidOTP), errors.Is(err, account.ErrOTPExpired), errors.Is(err, account.ErrNoOTP):
		return failure{http.StatusBadRequest, "invalid_otp"}

	case errors.Is(err, ErrUnauthorized), errors.Is(err, pipeline.ErrInvalidToken):
		return failure{http.StatusUnauthorized, "invalid_token"}
	case errors.Is(err, account.ErrWrongPassword):
		return failure{http.StatusUnauthorized, "wrong_password"}
	case errors.Is(err, ErrForbidden):
		return failure{http.StatusForbidden, "forbidden"}

	case errors.Is(err, account.ErrNoUsers), errors.Is(err, account.ErrAadhaarUnknown), errors.Is(err, account.ErrNameUnknown):
		return failure{http.StatusNotFound, "unknown_user"}
	case errors.Is(err, repository.ErrNotFound):
		return failure{http.StatusNotFound, "not_found"}

	case errors.Is(err, account.ErrDuplicate), errors.Is(err, repository.ErrConflict):
		return failure{http.StatusConflict, "duplicate"}
	case errors.Is(err, account.ErrAmbiguousName):
		return failure{http.StatusConflict, "ambiguous_name"}
	case errors.Is(err, pipeline.ErrStaleToken):
		return failure{http.StatusConflict, "stale_token"}
	case errors.Is(err, pipeline.ErrInvalidTransition):
		return failure{http.StatusConflict, "invalid_stage"}
	case errors.Is(err, types.ErrNoQuiz), errors.Is(err, types.ErrQuizIncomplete), errors.Is(err, quiz.ErrFinished):
		return failure{http.StatusConflict, "quiz_state"}
	case errors.Is(err, types.ErrDuplicateUpload):
		return failure{http.StatusConflict, "idempotency_conflict"}

	case errors.Is(err, ErrRateLimited):
		return failure{http.StatusTooManyRequests, "rate_limited"}
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return failure{http.StatusTooManyRequests, "backpressure"}

	case errors.Is(err, types.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return failure{http.StatusServiceUnavailable, "unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{http.StatusGatewayTimeout, "timeout"}
	}
	return failure{http.StatusInternalServerError, "internal"}
}

// fieldErrors extracts per-field messages from form validation errors.
func fieldErrors(err error) map[string]string {
	var af account.FieldErrors
	if errors.As(err, &af) && len(af) > 0 {
		return af
	}
	var ff fitness.FieldErrors
	if errors.As(err, &ff) && len(ff) > 0 {
		return ff
	}
	return nil
}
