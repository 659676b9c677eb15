package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Market metrics
	MarketSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_market_steps_total",
			Help: "Total number of successful market steps",
		},
		[]string{"market"}, // logit, logit-buybox, bertrand, sequential
	)

	// Buy Box oracle metrics
	BuyBoxPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_buybox_predictions_total",
			Help: "Total number of Buy Box predictions served",
		},
		[]string{"source"}, // cache, model
	)

	BuyBoxPredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_buybox_prediction_duration_seconds",
			Help:    "Duration of classifier calls on a cache miss",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	BuyBoxErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_buybox_errors_total",
			Help: "Total number of Buy Box oracle errors",
		},
		[]string{"stage"}, // cache_get, cache_set, predict
	)

	// Equilibrium solver metrics
	SolverRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_solver_runs_total",
			Help: "Total number of equilibrium solver runs",
		},
		[]string{"problem", "status"}, // monopoly/nash, converged/failed
	)

	SolverIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_solver_iterations",
			Help:    "Iterations used by the equilibrium solver",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"problem"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricing_active_sessions",
			Help: "Number of markets currently held by the server",
		},
	)

	// Storage metrics
	EpisodesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_episodes_stored_total",
			Help: "Total number of episode summaries written to the database",
		},
	)
)

// RecordSolverRun records the outcome of one solver run
func RecordSolverRun(problem string, converged bool, iterations int) {
	status := "converged"
	if !converged {
		status = "failed"
	}
	SolverRuns.WithLabelValues(problem, status).Inc()
	SolverIterations.WithLabelValues(problem).Observe(float64(iterations))
}

// RecordHTTPRequest records a served request
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
