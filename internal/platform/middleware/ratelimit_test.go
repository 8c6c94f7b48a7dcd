package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func fixedLimiter(cfg RateLimitConfig, now *time.Time) *limiter {
	l := newLimiter(cfg)
	l.now = func() time.Time { return *now }
	return l
}

func hit(e *echo.Echo, h echo.HandlerFunc, ip string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":4000"
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	e := echo.New()
	h := fixedLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}, &now).middleware()(ok)

	for i := 0; i < 2; i++ {
		rec, err := hit(e, h, "10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "1" {
			t.Errorf("expected X-RateLimit-Limit 1, got %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec, err := hit(e, h, "10.0.0.1")
	he, isHTTP := err.(*echo.HTTPError)
	if !isHTTP || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}

	now = now.Add(time.Second)
	if _, err := hit(e, h, "10.0.0.1"); err != nil {
		t.Errorf("expected refill after 1s, got %v", err)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	e := echo.New()
	h := fixedLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}, &now).middleware()(ok)

	if _, err := hit(e, h, "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := hit(e, h, "10.0.0.1"); err == nil {
		t.Fatal("expected second request from same client to be limited")
	}
	if _, err := hit(e, h, "10.0.0.2"); err != nil {
		t.Errorf("other client should have its own bucket, got %v", err)
	}
}

func TestBucket_ZeroRate(t *testing.T) {
	b := &bucket{rate: 0, capacity: 0}
	okay, retry := b.take(time.Now())
	if okay || retry != 1 {
		t.Errorf("expected rejection with retry 1, got %v %d", okay, retry)
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 || cfg.BurstSize <= 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
