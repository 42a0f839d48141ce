package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	analysisRunsTotal    *prometheus.CounterVec
	analysisDuration     prometheus.Histogram
	analysisBatchSize    prometheus.Histogram
	analysisFlaggedTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integrity_http_requests_total",
			Help: "Total number of integrity API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "integrity_http_latency_seconds",
			Help:    "Latency distribution for integrity API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		analysisRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integrity_analysis_runs_total",
			Help: "Analysis runs by outcome.",
		}, []string{"outcome"})

		analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "integrity_analysis_duration_seconds",
			Help:    "Wall time of an analysis run including persistence.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		})

		analysisBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "integrity_analysis_submissions",
			Help:    "Number of submissions scored per run.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		})

		analysisFlaggedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "integrity_analysis_flagged_submissions_total",
			Help: "Scored submissions with at least one partner above the plagiarism threshold.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, analysisRunsTotal, analysisDuration, analysisBatchSize, analysisFlaggedTotal)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// AnalysisRuns exposes the run counter labelled by outcome.
func AnalysisRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return analysisRunsTotal
}

// AnalysisDuration exposes the run duration histogram.
func AnalysisDuration() prometheus.Histogram {
	RegisterMetrics()
	return analysisDuration
}

// AnalysisBatchSize exposes the scored-submissions histogram.
func AnalysisBatchSize() prometheus.Histogram {
	RegisterMetrics()
	return analysisBatchSize
}

// AnalysisFlagged exposes the flagged submissions counter.
func AnalysisFlagged() prometheus.Counter {
	RegisterMetrics()
	return analysisFlaggedTotal
}

// MetricsHandler serves the default registry in the OpenMetrics format when
// the scraper asks for it.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
