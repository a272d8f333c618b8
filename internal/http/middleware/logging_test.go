package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newLogRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	return r
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	r := newLogRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	rid := w.Header().Get("X-Request-ID")
	if rid == "" {
		t.Fatalf("expected a generated request id")
	}
	if _, err := uuid.Parse(rid); err != nil {
		t.Fatalf("generated id should be a UUID, got %q", rid)
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	r := newLogRouter()

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "corr-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "corr-123" {
		t.Fatalf("incoming id should be echoed, got %q", got)
	}
}

func TestRecovery_PanicBecomesJSON500(t *testing.T) {
	r := newLogRouter()

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "corr-500")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "internal_error" {
		t.Fatalf("expected internal_error code, got %v", resp["code"])
	}
	if resp["request_id"] != "corr-500" {
		t.Fatalf("panic response should carry the correlation id, got %v", resp["request_id"])
	}
}

func TestLoggerFrom_FallsBackWithoutContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatalf("LoggerFrom must never return nil")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("want abc…, got %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("short strings pass through, got %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("max <= 0 disables truncation, got %q", got)
	}
}
