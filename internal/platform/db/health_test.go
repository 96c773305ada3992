package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakeBackend struct {
	err error
}

func (f fakeBackend) Name() string { return "fake" }
func (f fakeBackend) Ping(ctx context.Context) error { return f.err }

func TestHealthHandler_Healthy(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/store", nil), rec)

	if err := HealthHandler(fakeBackend{})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "healthy" || report.Driver != "fake" {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Pool != nil {
		t.Error("expected no pool stats for a non-pooled backend")
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/store", nil), rec)

	if err := HealthHandler(fakeBackend{err: errors.New("connection refused")})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != "unhealthy" || report.Error != "connection refused" {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestNewPool_BadURL(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{URL: "://not a url"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
