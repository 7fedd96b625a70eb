package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveJob("SEO_AUDIT", "OK", 10*time.Millisecond)
	m.ObserveJob("SEO_AUDIT", "OK", 20*time.Millisecond)
	m.ObserveFix("CONVERGED", 2, []string{"disabled", "disabled"})
	m.ObserveEvent("A", "view")

	if got := testutil.ToFloat64(m.jobs.WithLabelValues("SEO_AUDIT", "OK")); got != 2 {
		t.Errorf("jobs_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.assists.WithLabelValues("disabled")); got != 2 {
		t.Errorf("assist_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.abEvents.WithLabelValues("A", "view")); got != 1 {
		t.Errorf("events_total = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/healthz", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `lops_http_requests_total{code="200",method="GET",route="/healthz"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveJob("x", "OK", time.Second)
	m.ObserveAudit(50)
	m.ObserveFix("EXHAUSTED", 3, []string{"failed"})
	m.ObserveEvent("B", "cta_click")
	m.ObserveRequest("GET", "/", 500, time.Second)
	if m.Registry() != nil {
		t.Error("Registry() on nil = non-nil")
	}
}
