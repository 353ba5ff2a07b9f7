package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubChecker struct {
	status, message string
}

func (s stubChecker) CheckReady() (string, string) { return s.status, s.message }

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		pg, idp    ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{"всё ok", stubChecker{statusOK, ""}, stubChecker{statusOK, ""}, statusOK, http.StatusOK},
		{"IdP degraded", stubChecker{statusOK, ""}, stubChecker{statusDegraded, "нет ключей"}, statusDegraded, http.StatusOK},
		{"БД fail", stubChecker{statusFail, "timeout"}, stubChecker{statusOK, ""}, statusFail, http.StatusServiceUnavailable},
		{"не инициализирован", nil, stubChecker{statusOK, ""}, statusFail, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHealthHandler(tt.pg, tt.idp).Routes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus || resp.Service != serviceName {
				t.Errorf("ответ = %+v", resp)
			}
		})
	}
}

func TestHealthLiveAndMetrics(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(nil, nil).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health/live: статус = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics: статус = %d", rec.Code)
	}
}
