package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(&stubPinger{err: errors.New("down")}, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("liveness must ignore dependencies, got %d", rec.Code)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	down := &stubPinger{err: errors.New("connection refused")}

	tests := []struct {
		name         string
		db, cache    HealthChecker
		wantStatus   int
		wantBody     string
		wantPostgres string
		wantRedis    string
	}{
		{"all healthy", &stubPinger{}, &stubPinger{}, http.StatusOK, "ok", "ok", "ok"},
		{"database down", down, &stubPinger{}, http.StatusServiceUnavailable, "unhealthy", "error: connection refused", "ok"},
		{"redis down", &stubPinger{}, down, http.StatusServiceUnavailable, "unhealthy", "ok", "error: connection refused"},
		{"nothing configured", nil, nil, http.StatusOK, "ok", "not configured", "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.wantBody {
				t.Errorf("status = %s, want %s", response.Status, tt.wantBody)
			}
			if response.Checks["postgres"] != tt.wantPostgres {
				t.Errorf("postgres = %s, want %s", response.Checks["postgres"], tt.wantPostgres)
			}
			if response.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis = %s, want %s", response.Checks["redis"], tt.wantRedis)
			}
		})
	}
}
