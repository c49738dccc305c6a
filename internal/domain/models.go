package domain

import "time"

// StressLevel is the questionnaire classification of a total score.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

// Label returns the display text for the level.
func (l StressLevel) Label() string {
	switch l {
	case StressLow:
		return "Low Stress"
	case StressModerate:
		return "Moderate Stress"
	case StressHigh:
		return "High Stress"
	}
	return ""
}

// ReactionLevel is the reaction game classification of a response time.
type ReactionLevel string

const (
	ReactionLow    ReactionLevel = "low"
	ReactionMedium ReactionLevel = "medium"
	ReactionHigh   ReactionLevel = "high"
)

// Label returns the display text for the level.
func (l ReactionLevel) Label() string {
	switch l {
	case ReactionLow:
		return "Low Stress"
	case ReactionMedium:
		return "Medium Stress"
	case ReactionHigh:
		return "High Stress"
	}
	return ""
}

// Option is one selectable answer on the frequency scale.
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Question is a single survey item. Reverse items are scored as 4 - answer.
type Question struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Reverse bool   `json:"reverse"`
}

// Survey is a perceived stress instrument definition.
type Survey struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Options   []Option   `json:"options"`
	Questions []Question `json:"questions"`
}

// SurveyResponse maps question id to the selected answer.
// Questions without an entry are treated as answered 0 ("Never").
type SurveyResponse map[int]int

// ScoreResult is the outcome of scoring a complete response.
type ScoreResult struct {
	TotalScore  int         `json:"totalScore"`
	StressLevel StressLevel `json:"stressLevel"`
}

// Progress is an in-flight questionnaire, stepped one answer at a time.
type Progress struct {
	SessionID string         `json:"sessionId"`
	SurveyID  string         `json:"surveyId"`
	Cursor    int            `json:"cursor"`
	Answers   SurveyResponse `json:"answers"`
	StartedAt time.Time      `json:"startedAt"`
}

// Step describes the question currently presented to the respondent.
type Step struct {
	SessionID string   `json:"sessionId"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Percent   float64  `json:"percent"`
	Question  Question `json:"question"`
	Options   []Option `json:"options"`
	Selected  *int     `json:"selected,omitempty"`
}

// GameState is the phase of a reaction round.
type GameState string

const (
	GameWaiting GameState = "waiting"
	GameReady   GameState = "ready"
	GameDone    GameState = "done"
)

// RoundState is the observable state of a reaction round.
type RoundState struct {
	State              GameState `json:"state"`
	CountdownRemaining int       `json:"countdownRemaining"`
	StimulusAt         time.Time `json:"stimulusAt,omitempty"`
}

// GameResult is produced once per completed reaction round.
type GameResult struct {
	ElapsedMillis int64         `json:"elapsedMillis"`
	StressLevel   ReactionLevel `json:"stressLevel"`
}

// ElapsedSeconds is the reaction time in seconds, for display.
func (r GameResult) ElapsedSeconds() float64 {
	return float64(r.ElapsedMillis) / 1000.0
}

// RoundEventKind tags notifications emitted while a round runs.
type RoundEventKind string

const (
	EventCountdown RoundEventKind = "countdown"
	EventStimulus  RoundEventKind = "stimulus"
	EventResult    RoundEventKind = "result"
)

// RoundEvent is delivered to the round observer on every transition.
type RoundEvent struct {
	Kind    RoundEventKind `json:"kind"`
	RoundID string         `json:"roundId"`
	State   RoundState     `json:"state"`
	Result  *GameResult    `json:"result,omitempty"`
}

// AnswerOutcome is either the next step or, after the final answer, the score.
type AnswerOutcome struct {
	Next   *Step        `json:"next,omitempty"`
	Result *ScoreResult `json:"result,omitempty"`
}
