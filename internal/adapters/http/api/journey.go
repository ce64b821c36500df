package api

import (
	"context"
	"net/http"

	"github.com/okian/apas/internal/domain/fitness"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/scoring"
	"github.com/okian/apas/internal/domain/types"
)

// JourneyDependencies covers the sport, quiz and fitness steps.
type JourneyDependencies interface {
	SelectSport(ctx context.Context, claims *pipeline.Claims, sportID, skill string) (types.SelectionResult, error)
	Selection(ctx context.Context, claims *pipeline.Claims) (model.Selection, error)

	StartQuiz(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error)
	QuizState(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error)
	AnswerQuestion(ctx context.Context, claims *pipeline.Claims, questionID, option string) (types.QuizResult, error)
	NextQuestion(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error)
	PreviousQuestion(ctx context.Context, claims *pipeline.Claims) (types.QuizResult, error)
	SubmitQuiz(ctx context.Context, claims *pipeline.Claims, answers scoring.Answers) (types.QuizResult, error)

	FitnessState(ctx context.Context, claims *pipeline.Claims) (types.FitnessResult, error)
	SubmitFitness(ctx context.Context, claims *pipeline.Claims, form fitness.Form) (types.FitnessResult, error)
	RetryFitness(ctx context.Context, claims *pipeline.Claims) (types.FitnessResult, error)
}

// JourneyHandler handles the pipeline steps between registration and upload.
type JourneyHandler struct {
	deps JourneyDependencies
}

// NewJourneyHandler creates a new journey handler.
func NewJourneyHandler(deps JourneyDependencies) *JourneyHandler {
	return &JourneyHandler{deps: deps}
}

type selectionRequest struct {
	Sport      string `json:"sport"`
	SkillLevel string `json:"skillLevel"`
}

// HandleGetSelection handles GET /api/v1/selection.
func (h *JourneyHandler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_selection"
	sel, err := h.deps.Selection(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// HandleSelectSport handles POST /api/v1/selection.
func (h *JourneyHandler) HandleSelectSport(w http.ResponseWriter, r *http.Request) {
	const op = "api.select_sport"
	var req selectionRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.SelectSport(r.Context(), claimsFrom(r.Context()), req.Sport, req.SkillLevel)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// quizCall adapts a quiz operation that takes no body.
func (h *JourneyHandler) quizCall(op string, call func(context.Context, *pipeline.Claims) (types.QuizResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := call(r.Context(), claimsFrom(r.Context()))
		if err != nil {
			writeFailure(r.Context(), w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleQuizState handles GET /api/v1/quiz.
func (h *JourneyHandler) HandleQuizState(w http.ResponseWriter, r *http.Request) {
	h.quizCall("api.quiz_state", h.deps.QuizState)(w, r)
}

// HandleStartQuiz handles POST /api/v1/quiz/start. An attempt in progress is resumed.
func (h *JourneyHandler) HandleStartQuiz(w http.ResponseWriter, r *http.Request) {
	h.quizCall("api.start_quiz", h.deps.StartQuiz)(w, r)
}

// HandleNext handles POST /api/v1/quiz/next. Moving past the last question
// scores the attempt.
func (h *JourneyHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.quizCall("api.quiz_next", h.deps.NextQuestion)(w, r)
}

// HandlePrevious handles POST /api/v1/quiz/previous.
func (h *JourneyHandler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.quizCall("api.quiz_previous", h.deps.PreviousQuestion)(w, r)
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

// HandleAnswer handles POST /api/v1/quiz/answer.
func (h *JourneyHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.quiz_answer"
	var req answerRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.AnswerQuestion(r.Context(), claimsFrom(r.Context()), req.QuestionID, req.Option)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type submitQuizRequest struct {
	Answers scoring.Answers `json:"answers"`
}

// HandleSubmitQuiz handles POST /api/v1/quiz/submit. An empty body finalizes
// the attempt in progress; an answer sheet is scored as a whole.
func (h *JourneyHandler) HandleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	const op = "api.quiz_submit"
	var req submitQuizRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, op, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	res, err := h.deps.SubmitQuiz(r.Context(), claimsFrom(r.Context()), req.Answers)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleFitnessState handles GET /api/v1/fitness.
func (h *JourneyHandler) HandleFitnessState(w http.ResponseWriter, r *http.Request) {
	const op = "api.fitness_state"
	res, err := h.deps.FitnessState(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmitFitness handles POST /api/v1/fitness. A blocked outcome is a
// 200 response carrying the assessment.
func (h *JourneyHandler) HandleSubmitFitness(w http.ResponseWriter, r *http.Request) {
	const op = "api.fitness_submit"
	var form fitness.Form
	if err := decodeJSON(w, r, op, &form); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.SubmitFitness(r.Context(), claimsFrom(r.Context()), form)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRetryFitness handles POST /api/v1/fitness/retry.
func (h *JourneyHandler) HandleRetryFitness(w http.ResponseWriter, r *http.Request) {
	const op = "api.fitness_retry"
	res, err := h.deps.RetryFitness(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
