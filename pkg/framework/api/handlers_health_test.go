package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
	fwtesting "github.com/garunski/cartridge-fixture/pkg/framework/testing"
)

func TestHealthz(t *testing.T) {
	handler, err := newTestHandler(t)
	if err != nil {
		t.Fatalf("newTestHandler() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	handler.Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Healthz() status code = %v, want %v", w.Code, http.StatusOK)
	}

	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Healthz() response is not valid JSON: %v", err)
	}

	if status.Status != "healthy" {
		t.Errorf("Healthz() status = %v, want %v", status.Status, "healthy")
	}

	if status.Version != "test-version" {
		t.Errorf("Healthz() version = %v, want %v", status.Version, "test-version")
	}
}

func TestReadyz_AllHealthy(t *testing.T) {
	handler, cfg := newTestEnv(t)
	fwtesting.WriteManifest(t, cfg.repoRoot, "mock", "0.0.1", "0.1")
	if err := cfg.repo.Load(t.Context()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()

	handler.Readyz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Readyz() status code = %v, want %v", w.Code, http.StatusOK)
	}

	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Readyz() response is not valid JSON: %v", err)
	}

	if status.Status != "healthy" {
		t.Errorf("Readyz() status = %v, want %v", status.Status, "healthy")
	}

	if got := status.Components["repository"].Message; got != "1 cartridges indexed" {
		t.Errorf("Readyz() repository message = %q, want %q", got, "1 cartridges indexed")
	}

	if status.Components["eventStore"].Status != "available" {
		t.Errorf("Readyz() eventStore status = %v, want %v", status.Components["eventStore"].Status, "available")
	}

	if status.Components["reset"].Status != "idle" {
		t.Errorf("Readyz() reset status = %v, want idle", status.Components["reset"].Status)
	}
}

func TestReadyz_ResetOutcome(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantReset  string
	}{
		{"succeeded", nil, "healthy", "succeeded"},
		{"failed", errors.New("restart mcollective: exit status 1"), "degraded", "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := newTestHandler(t)
			if err != nil {
				t.Fatalf("newTestHandler() error = %v", err)
			}
			handler.resets.begin()
			handler.resets.finish(&reset.Result{}, tt.err)

			w := httptest.NewRecorder()
			handler.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))

			var status HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
				t.Fatalf("Readyz() response is not valid JSON: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("Readyz() status = %v, want %v", status.Status, tt.wantStatus)
			}
			if got := status.Components["reset"].Status; got != tt.wantReset {
				t.Errorf("Readyz() reset status = %v, want %v", got, tt.wantReset)
			}
		})
	}
}

func TestReadyz_ResetRunning(t *testing.T) {
	handler, err := newTestHandler(t)
	if err != nil {
		t.Fatalf("newTestHandler() error = %v", err)
	}
	handler.resets.begin()

	w := httptest.NewRecorder()
	handler.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))

	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Readyz() response is not valid JSON: %v", err)
	}
	if status.Status != "healthy" || status.Components["reset"].Status != "running" {
		t.Errorf("Readyz() = %+v, want healthy with a running reset", status)
	}
}

func TestReadyz_EventStoreUnavailable(t *testing.T) {
	handler, err := newTestHandler(t, WithNilEventStore())
	if err != nil {
		t.Fatalf("newTestHandler() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()

	handler.Readyz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Readyz() status code = %v, want %v", w.Code, http.StatusOK)
	}

	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Readyz() response is not valid JSON: %v", err)
	}

	if status.Status != "degraded" {
		t.Errorf("Readyz() status = %v, want %v", status.Status, "degraded")
	}

	if status.Components["eventStore"].Status != "unavailable" {
		t.Errorf("Readyz() eventStore status = %v, want %v", status.Components["eventStore"].Status, "unavailable")
	}
}

func TestHealthRoutes(t *testing.T) {
	handler, err := newTestHandler(t)
	if err != nil {
		t.Fatalf("newTestHandler() error = %v", err)
	}

	router := handler.SetupRoutes()
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s status code = %v, want %v", path, w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("GET %s Content-Type = %q, want application/json", path, got)
		}
	}
}
