package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimit_BurstThenReject(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/login", nil), rec)); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}

	rec := httptest.NewRecorder()
	err := handler(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/login", nil), rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_SeparateClients(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
		req.RemoteAddr = ip + ":1234"
		if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Errorf("client %s: unexpected error %v", ip, err)
		}
	}
}

func TestLimiter_RefillAndSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }

	if ok, _ := l.take("a"); !ok {
		t.Fatal("expected first request to pass")
	}
	if ok, wait := l.take("a"); ok || wait < 1 {
		t.Fatalf("expected rejection with wait, got ok=%v wait=%d", ok, wait)
	}

	now = now.Add(time.Second)
	if ok, _ := l.take("a"); !ok {
		t.Fatal("expected refill after one second")
	}

	now = now.Add(2 * time.Minute)
	l.take("b")
	if _, present := l.buckets["a"]; present {
		t.Error("expected idle bucket to be swept")
	}
}
