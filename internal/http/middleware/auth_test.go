package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(AuthOptions{Secret: secret}))
	r.GET("/whoami", func(c *gin.Context) {
		uid, _ := c.Get("userID")
		s, _ := uid.(string)
		c.String(http.StatusOK, s)
	})
	return r
}

func signToken(t *testing.T, secret, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestAuth_NoSecretTrustsHeader(t *testing.T) {
	r := newAuthRouter("")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Fatalf("want 200/u1, got %d/%q", w.Code, w.Body.String())
	}

	// Without the header the request proceeds anonymously.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("anonymous: want 200/empty, got %d/%q", w.Code, w.Body.String())
	}
}

func TestAuth_ValidToken(t *testing.T) {
	const secret = "topsecret"
	r := newAuthRouter(secret)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "u42", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u42" {
		t.Fatalf("want 200/u42, got %d/%q", w.Code, w.Body.String())
	}
}

func TestAuth_Rejections(t *testing.T) {
	const secret = "topsecret"
	r := newAuthRouter(secret)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic dXNlcjpwYXNz",
		"garbage token":  "Bearer not.a.jwt",
		"wrong key":      "Bearer " + signToken(t, "other-secret", "u1", time.Now().Add(time.Hour)),
		"expired":        "Bearer " + signToken(t, secret, "u1", time.Now().Add(-time.Hour)),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: want 401, got %d", name, w.Code)
		}
	}
}

func TestAuth_WithSecretIgnoresUserHeader(t *testing.T) {
	r := newAuthRouter("topsecret")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "spoofed")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("header spoofing must not bypass JWT auth, got %d", w.Code)
	}
}
