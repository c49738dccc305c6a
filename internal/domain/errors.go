package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSurveyNotFound indicates the survey definition could not be loaded.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrInvalidSurvey is returned for definitions that are not a 10 item instrument.
	ErrInvalidSurvey = errors.New("invalid survey definition")
	// ErrSessionNotFound is returned when a questionnaire session is unknown or expired.
	ErrSessionNotFound = errors.New("questionnaire session not found")
	// ErrInvalidAnswer is returned for answers outside the scale or for unknown questions.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrTimerUnavailable means the timing source failed and the round was abandoned.
	ErrTimerUnavailable = errors.New("timer unavailable")
	// ErrRoundAbandoned is returned when a round is cancelled before a result.
	ErrRoundAbandoned = errors.New("reaction round abandoned")
)

// InvalidAnswerError carries the offending question and value.
type InvalidAnswerError struct {
	QuestionID int
	Value      int
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer %d for question %d", e.Value, e.QuestionID)
}

func (e *InvalidAnswerError) Unwrap() error {
	return ErrInvalidAnswer
}
