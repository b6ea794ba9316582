package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeStatusProvider struct {
	lines []string
}

func (f fakeStatusProvider) StatusLines() []string { return f.lines }

func TestHandleStatusReturnsJSONArray(t *testing.T) {
	r := NewRouter(fakeStatusProvider{lines: []string{"a status: running (1 instances)", "b status: not running"}})
	ts := httptest.NewServer(r.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var lines []string
	if err := json.NewDecoder(resp.Body).Decode(&lines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a status: running (1 instances)" {
		t.Fatalf("unexpected body: %v", lines)
	}
}

func TestHandleMetricsServesPrometheusFormat(t *testing.T) {
	r := NewRouter(fakeStatusProvider{})
	ts := httptest.NewServer(r.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected Prometheus text exposition format, got Content-Type %q", ct)
	}
}

func TestNoMutatingRoutesExposed(t *testing.T) {
	r := NewRouter(fakeStatusProvider{})
	ts := httptest.NewServer(r.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected no mutating route to be registered, got %d", resp.StatusCode)
	}
}
