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

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func runHealth(t *testing.T, checks ...Check) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := HealthHandler(nil, checks...)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	code, body := runHealth(t, Check{"postgres", ok}, Check{"identity", ok})

	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if _, present := body["pool"]; present {
		t.Error("expected no pool stats without a pool")
	}
}

func TestHealthHandler_OneFailing(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })
	code, body := runHealth(t, Check{"postgres", ok}, Check{"identity", down})

	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected unhealthy, got %v", body["status"])
	}
	checks := body["checks"].(map[string]interface{})
	if checks["postgres"] != "ok" {
		t.Errorf("expected postgres ok, got %v", checks["postgres"])
	}
	if checks["identity"] != "dial tcp: refused" {
		t.Errorf("unexpected identity result %v", checks["identity"])
	}
}
