package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine process
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	EventsIngestedTotal *prometheus.CounterVec
	EventsRejectedTotal *prometheus.CounterVec

	// Window metrics
	SnapshotsTotal   prometheus.Counter
	SnapshotsSkipped prometheus.Counter
	WindowBucketSize prometheus.Gauge

	// Alerting metrics
	AlertsActive *prometheus.GaugeVec

	// Retention metrics
	ContentItemsTotal    prometheus.Gauge
	ContentEvictedTotal  prometheus.Counter
	SweepDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		EventsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_ingested_total",
				Help: "Total number of telemetry events ingested",
			},
			[]string{"kind"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_events_rejected_total",
				Help: "Total number of telemetry events rejected",
			},
			[]string{"reason"},
		),

		SnapshotsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_window_snapshots_total",
				Help: "Total number of window samples frozen",
			},
		),
		SnapshotsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_window_snapshots_skipped_total",
				Help: "Snapshots skipped to preserve sample ordering",
			},
		),
		WindowBucketSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_window_bucket_events",
				Help: "Events in the current window bucket",
			},
		),

		AlertsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulse_alerts_active",
				Help: "Currently active alerts by kind",
			},
			[]string{"kind"},
		),

		ContentItemsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_content_items_total",
				Help: "Registered content items",
			},
		),
		ContentEvictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pulse_content_evicted_total",
				Help: "Content items evicted by retention sweeps",
			},
		),
		SweepDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_sweep_duration_seconds",
				Help:    "Retention sweep duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsIngestedTotal,
		m.EventsRejectedTotal,
		m.SnapshotsTotal,
		m.SnapshotsSkipped,
		m.WindowBucketSize,
		m.AlertsActive,
		m.ContentItemsTotal,
		m.ContentEvictedTotal,
		m.SweepDurationSeconds,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
