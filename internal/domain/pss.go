package domain

import "fmt"

const (
	// PSSSurveyID identifies the built-in English PSS-10 definition.
	PSSSurveyID = "pss-10"
	// PSSQuestionCount is the fixed number of items on the instrument.
	PSSQuestionCount = 10
	// MaxAnswer is the top of the 0..4 frequency scale.
	MaxAnswer = 4
)

// FrequencyOptions is the five point scale shared by every item.
func FrequencyOptions() []Option {
	return []Option{
		{Label: "Never", Value: 0},
		{Label: "Almost Never", Value: 1},
		{Label: "Sometimes", Value: 2},
		{Label: "Fairly Often", Value: 3},
		{Label: "Very Often", Value: 4},
	}
}

// PSS10 returns the built-in Perceived Stress Scale. Items 4, 5, 7 and 8 are reverse coded.
func PSS10() Survey {
	return Survey{
		ID:      PSSSurveyID,
		Title:   "Perceived Stress Scale",
		Options: FrequencyOptions(),
		Questions: []Question{
			{ID: 1, Text: "In the last month, how often have you been upset because of something that happened unexpectedly?"},
			{ID: 2, Text: "In the last month, how often have you felt that you were unable to control the important things in your life?"},
			{ID: 3, Text: "In the last month, how often have you felt nervous and stressed?"},
			{ID: 4, Text: "In the last month, how often have you felt confident about your ability to handle your personal problems?", Reverse: true},
			{ID: 5, Text: "In the last month, how often have you felt that things were going your way?", Reverse: true},
			{ID: 6, Text: "In the last month, how often have you found that you could not cope with all the things that you had to do?"},
			{ID: 7, Text: "In the last month, how often have you been able to control irritations in your life?", Reverse: true},
			{ID: 8, Text: "In the last month, how often have you felt that you were on top of things?", Reverse: true},
			{ID: 9, Text: "In the last month, how often have you been angered because of things that happened that were outside of your control?"},
			{ID: 10, Text: "In the last month, how often have you felt difficulties were piling up so high that you could not overcome them?"},
		},
	}
}

// Validate checks the survey has exactly ten items with unique ids 1..10.
func (s Survey) Validate() error {
	if len(s.Questions) != PSSQuestionCount {
		return fmt.Errorf("%w: %s has %d questions", ErrInvalidSurvey, s.ID, len(s.Questions))
	}
	seen := make(map[int]bool, len(s.Questions))
	for _, q := range s.Questions {
		if q.ID < 1 || q.ID > PSSQuestionCount || seen[q.ID] {
			return fmt.Errorf("%w: %s has bad question id %d", ErrInvalidSurvey, s.ID, q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// Question returns the item with the given id.
func (s Survey) Question(id int) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
