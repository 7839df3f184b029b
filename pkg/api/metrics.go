package api

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors this entity process
// exposes, renamed from the teacher's TSL-pipeline metrics to the
// federation concepts this system actually performs: trust chain
// resolution and Trust Mark validation, plus the ambient HTTP metrics
// every handler produces. See SPEC_FULL.md §3.8.
type Metrics struct {
	ResolutionDuration        prometheus.Histogram
	ResolutionsTotal          *prometheus.CounterVec
	ResolutionErrors          prometheus.Counter
	ChainLength               prometheus.Histogram
	TrustMarkValidationsTotal *prometheus.CounterVec

	APIRequestsTotal    *prometheus.CounterVec
	APIRequestDuration  *prometheus.HistogramVec
	APIRequestsInFlight prometheus.Gauge
	ErrorsTotal         *prometheus.CounterVec
}

var (
	metricsOnce    sync.Once
	processMetrics *Metrics
)

// NewMetrics returns the process's collectors. The first call registers
// them against the default registry; later calls return that same
// Metrics, since promauto panics when a collector name is registered
// twice.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() { processMetrics = registerMetrics() })
	return processMetrics
}

func registerMetrics() *Metrics {
	return &Metrics{
		ResolutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "go_federation_resolution_duration_seconds",
			Help:    "Duration of trust chain resolutions.",
			Buckets: prometheus.DefBuckets,
		}),
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "go_federation_resolutions_total",
			Help: "Total number of trust chain resolutions, by outcome.",
		}, []string{"result"}),
		ResolutionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "go_federation_resolution_errors_total",
			Help: "Total number of trust chain resolutions that failed.",
		}),
		ChainLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "go_federation_chain_length",
			Help:    "Number of statements in a resolved trust chain.",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		}),
		TrustMarkValidationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "go_federation_trust_mark_validations_total",
			Help: "Total number of Trust Mark validations, by outcome.",
		}, []string{"result"}),

		APIRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "go_federation_api_requests_total",
			Help: "Total number of API requests.",
		}, []string{"method", "endpoint", "status"}),
		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "go_federation_api_request_duration_seconds",
			Help:    "Duration of API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		APIRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "go_federation_api_requests_in_flight",
			Help: "Number of API requests currently being served.",
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "go_federation_errors_total",
			Help: "Total number of errors, by type and operation.",
		}, []string{"error_type", "operation"}),
	}
}

// RecordResolution records one Resolver.Resolve call's outcome.
func (m *Metrics) RecordResolution(duration time.Duration, chainLength int, valid bool) {
	m.ResolutionDuration.Observe(duration.Seconds())
	m.ChainLength.Observe(float64(chainLength))
	if valid {
		m.ResolutionsTotal.WithLabelValues("valid").Inc()
	} else {
		m.ResolutionsTotal.WithLabelValues("invalid").Inc()
		m.ResolutionErrors.Inc()
	}
}

// RecordTrustMarkValidation records one Trust Mark validation verdict.
func (m *Metrics) RecordTrustMarkValidation(valid bool) {
	if valid {
		m.TrustMarkValidationsTotal.WithLabelValues("valid").Inc()
	} else {
		m.TrustMarkValidationsTotal.WithLabelValues("invalid").Inc()
	}
}

// RecordError records one error occurrence, by type and the operation
// it happened during.
func (m *Metrics) RecordError(errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(errorType, operation).Inc()
}

// MetricsMiddleware returns gin middleware recording request counts,
// durations, and in-flight gauge, skipping the /metrics endpoint
// itself to avoid self-referential noise.
func (m *Metrics) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.APIRequestsInFlight.Inc()
		defer m.APIRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start)
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		m.APIRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		m.APIRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration.Seconds())
	}
}

// RegisterMetricsEndpoint mounts Prometheus's HTTP handler at
// /metrics.
func RegisterMetricsEndpoint(r *gin.Engine, m *Metrics) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
