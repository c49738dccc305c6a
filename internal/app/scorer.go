package app

import (
	"stress-check-service/internal/domain"
)

// Inclusive upper bounds of the low and moderate bands; everything above is high.
const (
	lowStressMax      = 13
	moderateStressMax = 26
)

// Score totals a response against a survey definition. Missing answers count as 0,
// reverse items contribute 4 - answer. Answers outside 0..4 or keyed by a question
// the survey does not define fail with domain.ErrInvalidAnswer.
func Score(survey domain.Survey, responses domain.SurveyResponse) (domain.ScoreResult, error) {
	for questionID, answer := range responses {
		if _, ok := survey.Question(questionID); !ok {
			return domain.ScoreResult{}, &domain.InvalidAnswerError{QuestionID: questionID, Value: answer}
		}
		if answer < 0 || answer > domain.MaxAnswer {
			return domain.ScoreResult{}, &domain.InvalidAnswerError{QuestionID: questionID, Value: answer}
		}
	}

	total := 0
	for _, q := range survey.Questions {
		answer := responses[q.ID]
		if q.Reverse {
			total += domain.MaxAnswer - answer
		} else {
			total += answer
		}
	}
	return domain.ScoreResult{TotalScore: total, StressLevel: ClassifyScore(total)}, nil
}

// ScorePSS scores against the built-in PSS-10 definition.
func ScorePSS(responses domain.SurveyResponse) (domain.ScoreResult, error) {
	return Score(domain.PSS10(), responses)
}

// ClassifyScore maps a 0..40 total onto a stress band.
func ClassifyScore(total int) domain.StressLevel {
	switch {
	case total <= lowStressMax:
		return domain.StressLow
	case total <= moderateStressMax:
		return domain.StressModerate
	default:
		return domain.StressHigh
	}
}
