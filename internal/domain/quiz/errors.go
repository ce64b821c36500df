package quiz

import "errors"

var (
	// ErrUnanswered is returned by Next when the current question has no answer.
	ErrUnanswered = errors.New("Please select an answer")
	// ErrUnknownQuestion is returned when answering a question outside the bank.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrUnknownOption is returned when the chosen option does not exist.
	ErrUnknownOption = errors.New("unknown option")
	// ErrFinished is returned when navigating a session that already has results.
	ErrFinished = errors.New("quiz already finished")
	// ErrEmptyBank is returned when a session is started without questions.
	ErrEmptyBank = errors.New("question bank is empty")
)
