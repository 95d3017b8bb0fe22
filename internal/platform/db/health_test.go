package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func runHealth(t *testing.T, checks ...Check) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := HealthHandler(time.Second, checks...)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec, body
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec, body := runHealth(t,
		Check{Name: "database", Ping: func(context.Context) error { return nil }, Detail: func() any {
			return &PoolStats{TotalConns: 2, MaxConns: 10}
		}},
		Check{Name: "records_api", Ping: func(context.Context) error { return nil }},
	)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	checks := body["checks"].(map[string]any)
	database := checks["database"].(map[string]any)
	if database["detail"].(map[string]any)["max_conns"] != float64(10) {
		t.Errorf("expected pool stats in detail, got %v", database)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	rec, body := runHealth(t,
		Check{Name: "database", Ping: func(context.Context) error { return errors.New("connection refused") }},
		Check{Name: "records_api", Ping: func(context.Context) error { return nil }},
	)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	checks := body["checks"].(map[string]any)
	if checks["database"].(map[string]any)["error"] != "connection refused" {
		t.Errorf("unexpected checks %v", checks)
	}
	if checks["records_api"].(map[string]any)["status"] != "healthy" {
		t.Errorf("expected other checks to still run, got %v", checks)
	}
}

func TestHealthHandler_SharesDeadline(t *testing.T) {
	runHealth(t, Check{Name: "slow", Ping: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline")
		}
		return nil
	}})
}
