// Package pipeline is the eligibility state machine an athlete walks through:
// sport selection, excellence quiz, fitness gate, video scoring and
// leaderboard placement.
package pipeline

import "fmt"

// Stage is a position in the pipeline.
type Stage string

const (
	Registered            Stage = "registered"
	SportSelected         Stage = "sport_selected"
	QuizInProgress        Stage = "quiz_in_progress"
	QuizPassed            Stage = "quiz_passed"
	QuizFailed            Stage = "quiz_failed"
	FitnessFormInProgress Stage = "fitness_form_in_progress"
	FitnessCleared        Stage = "fitness_cleared"
	FitnessBlocked        Stage = "fitness_blocked"
	VideoUploaded         Stage = "video_uploaded"
	Scored                Stage = "scored"
	LeaderboardPlaced     Stage = "leaderboard_placed"
)

// Event moves a stage forward (or back, for retries).
type Event string

const (
	SelectSport      Event = "select_sport"
	StartQuiz        Event = "start_quiz"
	PassQuiz         Event = "pass_quiz"
	FailQuiz         Event = "fail_quiz"
	StartFitness     Event = "start_fitness"
	ClearFitness     Event = "clear_fitness"
	BlockFitness     Event = "block_fitness"
	RetryFitness     Event = "retry_fitness"
	UploadVideo      Event = "upload_video"
	ScoreVideo       Event = "score_video"
	AnalysisFailed   Event = "analysis_failed"
	PlaceLeaderboard Event = "place_leaderboard"
)

var transitions = map[Stage]map[Event]Stage{
	SportSelected: {
		StartQuiz: QuizInProgress,
	},
	QuizInProgress: {
		StartQuiz: QuizInProgress,
		PassQuiz:  QuizPassed,
		FailQuiz:  QuizFailed,
	},
	QuizPassed: {
		StartFitness: FitnessFormInProgress,
	},
	FitnessFormInProgress: {
		StartFitness: FitnessFormInProgress,
		ClearFitness: FitnessCleared,
		BlockFitness: FitnessBlocked,
	},
	FitnessCleared: {
		StartFitness: FitnessFormInProgress,
		UploadVideo:  VideoUploaded,
	},
	FitnessBlocked: {
		RetryFitness: FitnessFormInProgress,
	},
	VideoUploaded: {
		ScoreVideo:     Scored,
		AnalysisFailed: FitnessCleared,
	},
	Scored: {
		PlaceLeaderboard: LeaderboardPlaced,
	},
	LeaderboardPlaced: {
		UploadVideo: VideoUploaded,
	},
}

// Transition returns the stage reached by applying e to s. Selecting a sport
// restarts the pipeline from any stage.
func Transition(s Stage, e Event) (Stage, error) {
	if e == SelectSport {
		if !s.Valid() {
			return s, fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, s)
		}
		return SportSelected, nil
	}
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

var order = map[Stage]int{
	Registered:            0,
	SportSelected:         1,
	QuizInProgress:        2,
	QuizPassed:            3,
	QuizFailed:            3,
	FitnessFormInProgress: 4,
	FitnessCleared:        5,
	FitnessBlocked:        5,
	VideoUploaded:         6,
	Scored:                7,
	LeaderboardPlaced:     8,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := order[s]
	return ok
}

// Terminal reports whether s only allows a retry.
func (s Stage) Terminal() bool {
	return s == QuizFailed || s == FitnessBlocked
}

// Reached reports whether s is at or beyond target on the success path.
func (s Stage) Reached(target Stage) bool {
	if s.Terminal() && s != target {
		return order[s] > order[target]
	}
	return order[s] >= order[target]
}

// Allows reports whether e is accepted from s.
func (s Stage) Allows(e Event) bool {
	_, err := Transition(s, e)
	return err == nil
}
