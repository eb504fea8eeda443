// Package metrics holds the prometheus collectors for the analysis engine and the API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "claimguard"

var (
	// RunsTotal counts finished runs by final status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Finished analysis runs by final status.",
		},
		[]string{"status"},
	)

	// RunsActive is the number of runs currently processing
	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_runs_active",
			Help:      "Analysis runs currently holding a processing slot.",
		},
	)

	// RowsTotal counts source rows by outcome (valid, dropped)
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_rows_total",
			Help:      "Source rows read by outcome.",
		},
		[]string{"outcome"},
	)

	// RecordsScored counts enriched records that went through risk scoring
	RecordsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_records_scored_total",
			Help:      "Records scored by the risk scorer.",
		},
	)

	// AnomaliesTotal counts flagged records by signal (cost, volume, model)
	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_anomalies_total",
			Help:      "Flagged records by signal.",
		},
		[]string{"signal"},
	)

	// AlertsTotal counts raised alerts by kind and severity
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_alerts_total",
			Help:      "Alerts raised by kind and severity.",
		},
		[]string{"kind", "severity"},
	)

	// BatchDurationSeconds times scoring plus persistence of one batch
	BatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_batch_duration_seconds",
			Help:      "Batch duration in seconds by phase.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 10), // 10ms to ~38s
		},
		[]string{"phase"},
	)

	// HTTPRequestTotal counts API requests by method, route and status
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds is API latency by method and route
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry
func Handler() http.Handler { return promhttp.Handler() }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency keyed by the chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
