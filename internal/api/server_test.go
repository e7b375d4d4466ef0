// internal/api/server_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/meter"
	"github.com/tamzrod/jsy-meter/internal/sink"
	"github.com/tamzrod/jsy-meter/internal/status"
)

func newTestServer(t *testing.T, snap status.Snapshot) (*Server, *sink.Latest) {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics, err := sink.NewMetrics(reg, "meter1")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	metrics.SetStatus(snap)

	latest := sink.NewLatest()
	cfg := &config.PrometheusConfig{Listen: "127.0.0.1:0", Path: "/metrics"}

	s := NewServer(cfg, "meter1", reg, latest, func() status.Snapshot { return snap }, zap.NewNop())
	return s, latest
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReflectsStatus(t *testing.T) {
	s, _ := newTestServer(t, status.Snapshot{Health: status.HealthOK})
	if rec := get(t, s, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("healthy code = %d", rec.Code)
	}

	s, _ = newTestServer(t, status.Snapshot{Health: status.HealthError, LastErrorCode: 3})
	rec := get(t, s, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("error code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestReadings_EmptyUntilFirstPoll(t *testing.T) {
	s, latest := newTestServer(t, status.Snapshot{})

	if rec := get(t, s, "/api/v1/readings"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code before first poll = %d", rec.Code)
	}

	latest.Sink(meter.Field{Phase: meter.PhaseA, Quantity: meter.Voltage}).Publish(230.5)

	rec := get(t, s, "/api/v1/readings")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var body struct {
		Device string       `json:"device"`
		Values []sink.Value `json:"values"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Device != "meter1" || len(body.Values) != 1 || body.Values[0].Value != 230.5 {
		t.Fatalf("body = %+v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t, status.Snapshot{Health: status.HealthError, LastErrorCode: 2, SecondsInError: 9})

	rec := get(t, s, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"last_error_code":2`) || !strings.Contains(body, `"seconds_in_error":9`) {
		t.Fatalf("body = %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, status.Snapshot{Health: status.HealthOK})

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `jsy_meter_up{device="meter1"} 1`) {
		t.Fatalf("metrics body missing up gauge:\n%s", rec.Body.String())
	}
}
