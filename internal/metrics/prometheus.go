// Package metrics exposes Prometheus collectors for the diagnosis pipeline and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bcdx_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bcdx_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Pipeline metrics
	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_predictions_total",
			Help: "Total number of successful classifications",
		},
		[]string{"label", "risk_category"},
	)

	predictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bcdx_prediction_duration_seconds",
			Help:    "End to end classification duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	validationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_validation_failures_total",
			Help: "Total number of rejected requests by failure kind",
		},
		[]string{"kind"},
	)

	inferenceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bcdx_inference_failures_total",
			Help: "Total number of classifier failures",
		},
	)

	storageFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_storage_faults_total",
			Help: "Total number of record store failures",
		},
		[]string{"operation"},
	)

	sessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_session_lookups_total",
			Help: "Session cache lookups by result",
		},
		[]string{"result"},
	)

	reportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcdx_reports_total",
			Help: "Total number of report requests",
		},
		[]string{"format", "status"},
	)

	reportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bcdx_report_render_duration_seconds",
			Help:    "Report assembly and rendering duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"format"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request counts and durations. Paths are the matched route
// template so ids in query strings do not add label values.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// --- Pipeline metric helpers ---

// RecordPrediction records a successful classification
func RecordPrediction(label, riskCategory string, duration time.Duration) {
	predictionsTotal.WithLabelValues(label, riskCategory).Inc()
	predictionDuration.Observe(duration.Seconds())
}

// RecordValidationFailure records a rejected request; kind is "features" or "metadata"
func RecordValidationFailure(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}

// RecordInferenceFailure records a classifier failure
func RecordInferenceFailure() {
	inferenceFailures.Inc()
}

// RecordStorageFault records a failed record store operation
func RecordStorageFault(operation string) {
	storageFaults.WithLabelValues(operation).Inc()
}

// RecordSessionLookup records a session cache hit, miss or error
func RecordSessionLookup(result string) {
	sessionLookups.WithLabelValues(result).Inc()
}

// RecordReport records a report request
func RecordReport(format string, ok bool, duration time.Duration) {
	status := "error"
	if ok {
		status = "success"
	}
	reportsTotal.WithLabelValues(format, status).Inc()
	reportDuration.WithLabelValues(format).Observe(duration.Seconds())
}
