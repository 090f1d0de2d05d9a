package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer() *Server {
	return NewServer(&Config{
		ListenPort:   0,
		MetricsPort:  0,
		ProbesPort:   0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
		ID:           "test",
	}, nil)
}

func TestProbesMux_ServesOnlyProbes(t *testing.T) {
	s := newTestServer()
	mux := s.probesMux()

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}

	// Metrics must not leak onto the probes port.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics on probes mux = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMetricsMux_ServesOnlyMetrics(t *testing.T) {
	s := newTestServer()
	mux := s.metricsMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want %d", rec.Code, http.StatusOK)
	}

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s on metrics mux = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestRun_BindFailureReturns(t *testing.T) {
	s := newTestServer()
	s.config.ListenAddr = "999.999.999.999" // unresolvable, listen must fail

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after a failed bind")
	}
}
