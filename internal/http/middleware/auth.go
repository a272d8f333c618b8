// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication. The social frontend issues
// HS256 JWTs at login; the API only needs the subject claim (the user id) to
// scope conversations and messages. Verification is deliberately thin — no
// session store, no refresh handling — because token lifecycle is owned by the
// identity service.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ctxKeyUserID is the Gin context key under which the authenticated user id
// is stored. Handlers read it via c.Get("userID").
const ctxKeyUserID = "userID"

// AuthOptions configures the Auth middleware.
//
// Secret is the HS256 signing key shared with the identity service. When
// Secret is empty, JWT verification is disabled and the middleware trusts the
// X-User-ID header instead — a development/test posture, matching the rest of
// the demo-friendly defaults.
type AuthOptions struct {
	Secret string
}

// Auth returns a Gin middleware that resolves the current user identity and
// stores it in the context under "userID".
//
// With a configured secret, a valid `Authorization: Bearer <jwt>` header is
// required and the subject claim becomes the user id; malformed, expired, or
// mis-signed tokens yield 401. Without a secret, the X-User-ID header is used
// verbatim and requests without it proceed anonymously (handlers reject
// operations that need an identity).
func Auth(opt AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opt.Secret == "" {
			if uid := strings.TrimSpace(c.GetHeader("X-User-ID")); uid != "" {
				c.Set(ctxKeyUserID, uid)
			}
			c.Next()
			return
		}

		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims := jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(opt.Secret), nil
		})
		if err != nil || !tok.Valid || claims.Subject == "" {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
