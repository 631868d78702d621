package exporters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/metrics"
)

func TestHTTPHandler(t *testing.T) {
	handler := HTTPHandler()
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}

	// Set a metric so there's something to export
	metrics.RecordTick(1, 0, 100, false, false)
	defer metrics.Reset()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !strings.Contains(body, "ledspin_loop_ticks_total") {
		t.Error("expected loop metrics in response")
	}
}

func TestNewHTTPHandler_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	probe := prometheus.NewGauge(prometheus.GaugeOpts{Name: "probe_value"})
	reg.MustRegister(probe)
	probe.Set(7)

	handler := NewHTTPHandler(reg, reg, nil)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "probe_value 7") {
			t.Errorf("body missing probe gauge:\n%s", body)
		}
		if strings.Contains(body, "ledspin_loop_ticks_total") {
			t.Error("custom registry leaked default metrics")
		}
		if i == 1 && !strings.Contains(body, "promhttp_metric_handler_requests_total") {
			t.Error("scrapes are not counted")
		}
	}
}
