package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewHTTPIsIdempotent(t *testing.T) {
	a := NewHTTP("metrics_test_service")
	b := NewHTTP("metrics_test_service")
	if a.Requests != b.Requests || a.Latency != b.Latency || a.Summary != b.Summary {
		t.Fatal("second NewHTTP registered new collectors")
	}
	a.Observe("GET", "/x", "200", 10*time.Millisecond)
}

func TestRegisterReturnsExisting(t *testing.T) {
	g := Register(prometheus.NewGauge(prometheus.GaugeOpts{Name: "metrics_test_gauge", Help: "test"}))
	again := Register(prometheus.NewGauge(prometheus.GaugeOpts{Name: "metrics_test_gauge", Help: "test"}))
	if again != g {
		t.Fatal("Register returned a new gauge for an existing name")
	}
}

func TestWrapRecordsStatus(t *testing.T) {
	m := NewHTTP("metrics_wrap_test")
	h := m.Wrap("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "metrics_wrap_test_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == "418" {
					return
				}
			}
		}
	}
	t.Fatal("no request counted with status 418")
}
