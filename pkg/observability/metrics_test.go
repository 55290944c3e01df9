package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if metrics.AuthChecksTotal == nil {
		t.Error("AuthChecksTotal is nil")
	}
	if metrics.CSRFValidationsTotal == nil {
		t.Error("CSRFValidationsTotal is nil")
	}
	if metrics.RateLimitRejectionsTotal == nil {
		t.Error("RateLimitRejectionsTotal is nil")
	}
	if metrics.RoleChecksTotal == nil {
		t.Error("RoleChecksTotal is nil")
	}
}

func TestMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.AuthChecksTotal.WithLabelValues("verified").Inc()
	metrics.AuthChecksTotal.WithLabelValues("verified").Inc()
	metrics.CSRFRejectionsTotal.WithLabelValues("missing").Inc()

	if got := testutil.ToFloat64(metrics.AuthChecksTotal.WithLabelValues("verified")); got != 2 {
		t.Errorf("expected 2 verified auth checks, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CSRFRejectionsTotal.WithLabelValues("missing")); got != 1 {
		t.Errorf("expected 1 missing-token rejection, got %v", got)
	}
}

func TestInstrumentHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := metrics.InstrumentHandler("/api/items", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/items", nil))

	if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/items", "403")); got != 1 {
		t.Errorf("expected 1 counted request, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
