package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stress-check-service/internal/domain"
	"stress-check-service/internal/observability"
)

// ProgressRepository stores in-flight questionnaires (in-memory, Redis, etc).
type ProgressRepository interface {
	Save(ctx context.Context, progress domain.Progress) error
	Load(ctx context.Context, sessionID string) (domain.Progress, error)
	Delete(ctx context.Context, sessionID string) error
}

// SurveyRepository loads survey definitions (from cache/backing store).
type SurveyRepository interface {
	GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
}

// Recorder receives outcome counts; observability.Metrics implements it.
type Recorder interface {
	QuestionnaireCompleted(result domain.ScoreResult)
	RoundFinished(outcome string, result domain.GameResult)
}

type nopRecorder struct{}

func (nopRecorder) QuestionnaireCompleted(domain.ScoreResult)  {}
func (nopRecorder) RoundFinished(string, domain.GameResult) {}

// AssessmentService contains the questionnaire and reaction game use cases.
type AssessmentService struct {
	progress ProgressRepository
	surveys  SurveyRepository
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	clock    Clock
	rnd      RandSource
	round    RoundConfig
}

// Option customises an AssessmentService.
type Option func(*AssessmentService)

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *AssessmentService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *AssessmentService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the timing source for reaction rounds and session timestamps.
func WithClock(c Clock) Option {
	return func(s *AssessmentService) {
		s.clock = c
		if c != nil {
			s.now = c.Now
		}
	}
}

// WithRandSource fixes the stimulus delay source, mainly for tests.
func WithRandSource(r RandSource) Option {
	return func(s *AssessmentService) { s.rnd = r }
}

// WithRoundConfig overrides the countdown and delay window.
func WithRoundConfig(cfg RoundConfig) Option {
	return func(s *AssessmentService) { s.round = cfg }
}

// WithIDGenerator replaces uuid session ids, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *AssessmentService) { s.newID = fn }
}

func NewAssessmentService(progress ProgressRepository, surveys SurveyRepository, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		progress: progress,
		surveys:  surveys,
		recorder: nopRecorder{},
		logger:   observability.Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		clock:    SystemClock(),
		rnd:      NewRandSource(),
		round:    DefaultRoundConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Survey returns a validated survey definition.
func (s *AssessmentService) Survey(ctx context.Context, surveyID string) (domain.Survey, error) {
	survey, err := s.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return domain.Survey{}, err
	}
	if err := survey.Validate(); err != nil {
		return domain.Survey{}, err
	}
	return survey, nil
}

// Score scores a complete response in one call.
func (s *AssessmentService) Score(ctx context.Context, surveyID string, responses domain.SurveyResponse) (domain.ScoreResult, error) {
	survey, err := s.Survey(ctx, surveyID)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	result, err := Score(survey, responses)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	s.recorder.QuestionnaireCompleted(result)
	return result, nil
}

// StartQuestionnaire opens a new session positioned on the first question.
func (s *AssessmentService) StartQuestionnaire(ctx context.Context, surveyID string) (domain.Step, error) {
	survey, err := s.Survey(ctx, surveyID)
	if err != nil {
		return domain.Step{}, err
	}
	progress := domain.Progress{
		SessionID: s.newID(),
		SurveyID:  survey.ID,
		Answers:   domain.SurveyResponse{},
		StartedAt: s.now(),
	}
	if err := s.progress.Save(ctx, progress); err != nil {
		return domain.Step{}, err
	}
	observability.LoggerFromContext(observability.WithSessionID(ctx, progress.SessionID), s.logger).
		Info("questionnaire started", slog.String("survey_id", survey.ID))
	return buildStep(progress, survey), nil
}

// Current returns the question the session is positioned on.
func (s *AssessmentService) Current(ctx context.Context, sessionID string) (domain.Step, error) {
	progress, survey, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Step{}, err
	}
	return buildStep(progress, survey), nil
}

// Answer records value for the current question. Before the last question it
// advances and returns the next step; the last answer scores the response and
// closes the session.
func (s *AssessmentService) Answer(ctx context.Context, sessionID string, value int) (domain.AnswerOutcome, error) {
	progress, survey, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	question := survey.Questions[progress.Cursor]
	if value < 0 || value > domain.MaxAnswer {
		return domain.AnswerOutcome{}, &domain.InvalidAnswerError{QuestionID: question.ID, Value: value}
	}
	progress.Answers[question.ID] = value

	if progress.Cursor < len(survey.Questions)-1 {
		progress.Cursor++
		if err := s.progress.Save(ctx, progress); err != nil {
			return domain.AnswerOutcome{}, err
		}
		next := buildStep(progress, survey)
		return domain.AnswerOutcome{Next: &next}, nil
	}

	result, err := Score(survey, progress.Answers)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if err := s.progress.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("drop finished questionnaire", slog.String("session_id", sessionID), slog.String("error", err.Error()))
	}
	s.recorder.QuestionnaireCompleted(result)
	s.logger.Info("questionnaire completed",
		slog.String("session_id", sessionID),
		slog.Int("total_score", result.TotalScore),
		slog.String("stress_level", string(result.StressLevel)))
	return domain.AnswerOutcome{Result: &result}, nil
}

// Previous steps back one question; at the first question it is a no-op.
func (s *AssessmentService) Previous(ctx context.Context, sessionID string) (domain.Step, error) {
	progress, survey, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Step{}, err
	}
	if progress.Cursor > 0 {
		progress.Cursor--
		if err := s.progress.Save(ctx, progress); err != nil {
			return domain.Step{}, err
		}
	}
	return buildStep(progress, survey), nil
}

// Abandon discards an unfinished questionnaire.
func (s *AssessmentService) Abandon(ctx context.Context, sessionID string) error {
	return s.progress.Delete(ctx, sessionID)
}

// NewRound prepares a reaction round with the service clock and random source.
func (s *AssessmentService) NewRound() *Round {
	return NewRound(s.newID(), s.round, s.clock, s.rnd)
}

// PlayRound runs a fresh reaction round to completion or abandonment.
func (s *AssessmentService) PlayRound(ctx context.Context, taps <-chan struct{}, notify func(domain.RoundEvent)) (domain.GameResult, error) {
	round := s.NewRound()
	log := observability.LoggerFromContext(observability.WithSessionID(ctx, round.ID()), s.logger)

	result, err := round.Play(ctx, taps, notify)
	switch {
	case err == nil:
		s.recorder.RoundFinished("completed", result)
		log.Info("reaction round completed",
			slog.Int64("elapsed_ms", result.ElapsedMillis),
			slog.String("stress_level", string(result.StressLevel)))
	case errors.Is(err, domain.ErrTimerUnavailable):
		s.recorder.RoundFinished("timer_unavailable", result)
		log.Error("reaction round failed", slog.String("error", err.Error()))
	default:
		s.recorder.RoundFinished("abandoned", result)
		log.Debug("reaction round abandoned", slog.String("error", err.Error()))
	}
	return result, err
}

func (s *AssessmentService) load(ctx context.Context, sessionID string) (domain.Progress, domain.Survey, error) {
	progress, err := s.progress.Load(ctx, sessionID)
	if err != nil {
		return domain.Progress{}, domain.Survey{}, err
	}
	survey, err := s.Survey(ctx, progress.SurveyID)
	if err != nil {
		return domain.Progress{}, domain.Survey{}, err
	}
	if progress.Cursor < 0 || progress.Cursor >= len(survey.Questions) {
		progress.Cursor = 0
	}
	if progress.Answers == nil {
		progress.Answers = domain.SurveyResponse{}
	}
	return progress, survey, nil
}

func buildStep(progress domain.Progress, survey domain.Survey) domain.Step {
	question := survey.Questions[progress.Cursor]
	step := domain.Step{
		SessionID: progress.SessionID,
		Index:     progress.Cursor,
		Total:     len(survey.Questions),
		Percent:   float64(progress.Cursor+1) / float64(len(survey.Questions)) * 100,
		Question:  question,
		Options:   survey.Options,
	}
	if answer, ok := progress.Answers[question.ID]; ok {
		selected := answer
		step.Selected = &selected
	}
	return step
}
