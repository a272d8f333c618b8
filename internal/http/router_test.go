package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-social-backend/internal/config"
	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/presence"
	"github.com/tbourn/go-social-backend/internal/ws"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}, &domain.Idempotency{}, &domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	registry := presence.NewRegistry()
	relay := ws.NewRelay(registry, zerolog.Nop())
	hub := ws.NewHub(registry, relay, ws.GormDirectory{DB: db}, zerolog.Nop(), ws.Options{})

	cfg := config.Config{
		APIBasePath:  "/api/v1",
		RateRPS:      1000,
		RateBurst:    1000,
		MaxTextRunes: 2000,
	}

	r := gin.New()
	RegisterRoutes(r, db, hub, cfg)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: want 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID to be set")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: want 200, got %d", w.Code)
	}
}

func TestNoRouteAndNoMethodEnvelopes(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: want 404, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "not_found" {
		t.Fatalf("expected code not_found, got %v", resp["code"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method: want 405, got %d", w.Code)
	}
}

func TestConversationRoundTripThroughRouter(t *testing.T) {
	r := newRouter(t)

	body, _ := json.Marshal(map[string]string{"peerId": "u2"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("X-User-ID", "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: want 200, got %d", w.Code)
	}
	if cc := w.Header().Get("Access-Control-Allow-Origin"); cc != "*" {
		t.Fatalf("expected permissive CORS default, got %q", cc)
	}
}
