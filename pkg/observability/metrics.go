package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session verification metrics
	AuthChecksTotal *prometheus.CounterVec

	// CSRF metrics
	CSRFTokensIssuedTotal prometheus.Counter
	CSRFValidationsTotal  *prometheus.CounterVec
	CSRFRejectionsTotal   *prometheus.CounterVec

	// Rate limit metrics
	RateLimitChecksTotal     *prometheus.CounterVec
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Role authorization metrics
	RoleChecksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnstile_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_auth_checks_total",
				Help: "Total number of session verifications by outcome",
			},
			[]string{"outcome"},
		),
		CSRFTokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_csrf_tokens_issued_total",
				Help: "Total number of CSRF tokens issued",
			},
		),
		CSRFValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_csrf_validations_total",
				Help: "Total number of CSRF token validations by outcome",
			},
			[]string{"outcome"},
		),
		CSRFRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_csrf_rejections_total",
				Help: "Total number of CSRF rejections by reason",
			},
			[]string{"reason"},
		),
		RateLimitChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ratelimit_checks_total",
				Help: "Total number of rate limit checks",
			},
			[]string{"category", "key_type"},
		),
		RateLimitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_ratelimit_rejections_total",
				Help: "Total number of rate limit rejections",
			},
			[]string{"category", "key_type"},
		),
		RoleChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_role_checks_total",
				Help: "Total number of role membership checks by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthChecksTotal,
		m.CSRFTokensIssuedTotal,
		m.CSRFValidationsTotal,
		m.CSRFRejectionsTotal,
		m.RateLimitChecksTotal,
		m.RateLimitRejectionsTotal,
		m.RoleChecksTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for a registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request count and duration metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
