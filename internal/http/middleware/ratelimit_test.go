package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByUserOrIP())
	r.Use(Auth(AuthOptions{}))
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := newLimitedRouter(0, 3)

	for i := 0; i < 3; i++ {
		if w := get(r, "u1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: want 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimiter_RejectsAfterBurst(t *testing.T) {
	r := newLimitedRouter(0, 2)

	get(r, "u1")
	get(r, "u1")
	w := get(r, "u1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After: 1, got %q", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_BucketsAreIndependentPerUser(t *testing.T) {
	r := newLimitedRouter(0, 1)

	if w := get(r, "u1"); w.Code != http.StatusOK {
		t.Fatalf("u1 first: want 200, got %d", w.Code)
	}
	if w := get(r, "u1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("u1 second: want 429, got %d", w.Code)
	}
	// A different identity gets its own bucket.
	if w := get(r, "u2"); w.Code != http.StatusOK {
		t.Fatalf("u2: want 200, got %d", w.Code)
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst <= 0 should be coerced to 1, got %d", rl.burst)
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keyFn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("userID", "u7")
	if got := keyFn(c); got != "user:u7" {
		t.Fatalf("want user:u7, got %q", got)
	}

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := keyFn(c2); got == "" || got[:3] != "ip:" {
		t.Fatalf("want ip-prefixed key, got %q", got)
	}
}
