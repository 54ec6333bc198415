package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query outcomes.
const (
	OutcomeEmpty     = "empty"
	OutcomeOffDomain = "off_domain"
	OutcomeNoCity    = "no_city"
	OutcomeAnswered  = "answered"
	OutcomeError     = "error"
)

var (
	once sync.Once

	queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_agent_queries_total",
		Help: "Weather queries by terminal pipeline outcome",
	}, []string{"outcome"})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weather_agent_stage_duration_seconds",
		Help:    "Latency of each pipeline stage",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"stage"})

	upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_agent_upstream_errors_total",
		Help: "Failed calls to external collaborators",
	}, []string{"upstream"})

	citySource = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_agent_city_resolution_total",
		Help: "Where the resolved city list came from",
	}, []string{"source"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(queries, stageDuration, upstreamErrors, citySource)
	})
}

// Register makes the collectors visible on the default registry.
func Register() {
	ensureRegistered()
}

// ObserveQuery counts a finished query.
func ObserveQuery(outcome string) {
	ensureRegistered()
	queries.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveUpstreamError counts a failure of llm, weather or history.
func ObserveUpstreamError(upstream string) {
	ensureRegistered()
	upstreamErrors.WithLabelValues(upstream).Inc()
}

// ObserveCitySource counts how a city list was resolved.
func ObserveCitySource(source string) {
	ensureRegistered()
	citySource.WithLabelValues(source).Inc()
}
