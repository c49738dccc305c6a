package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stress-check-service/internal/domain"
)

// Metrics records questionnaire and reaction round outcomes.
type Metrics struct {
	registry      *prometheus.Registry
	questionnaire *prometheus.CounterVec
	scores        prometheus.Histogram
	rounds        *prometheus.CounterVec
	reaction      prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questionnaire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stresscheck",
			Name:      "questionnaires_completed_total",
			Help:      "Completed perceived stress questionnaires by stress level.",
		}, []string{"level"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stresscheck",
			Name:      "questionnaire_score",
			Help:      "Distribution of perceived stress totals.",
			Buckets:   []float64{13, 26, 40},
		}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stresscheck",
			Name:      "reaction_rounds_total",
			Help:      "Reaction rounds by outcome.",
		}, []string{"outcome"}),
		reaction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stresscheck",
			Name:      "reaction_time_milliseconds",
			Help:      "Measured reaction times.",
			Buckets:   []float64{150, 200, 250, 300, 400, 600, 1000},
		}),
	}
	m.registry.MustRegister(m.questionnaire, m.scores, m.rounds, m.reaction)
	return m
}

// QuestionnaireCompleted counts a scored questionnaire.
func (m *Metrics) QuestionnaireCompleted(result domain.ScoreResult) {
	m.questionnaire.WithLabelValues(string(result.StressLevel)).Inc()
	m.scores.Observe(float64(result.TotalScore))
}

// RoundFinished counts a reaction round; result is only observed for "completed".
func (m *Metrics) RoundFinished(outcome string, result domain.GameResult) {
	m.rounds.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		m.reaction.Observe(float64(result.ElapsedMillis))
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
