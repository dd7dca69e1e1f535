// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates callers from an "Authorization: Bearer <jwt>"
// header. Authenticate is installed globally and only annotates the context;
// RequireAuth and RequireRole guard individual route groups.
//
// Context keys written here ("userID", "role", "email") are read back through
// UserID, Role and Email by handlers, the rate limiter, the idempotency
// validator and the access log.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allodocteur/booking-backend/internal/auth"
)

const (
	ctxKeyUserID  = "userID"
	ctxKeyRole    = "role"
	ctxKeyEmail   = "email"
	ctxKeyAuthErr = "auth.err"
)

// TokenParser verifies an access token. *auth.Issuer implements it.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticate parses a bearer token when one is present. Requests without a
// token, or with a bad one, continue anonymously; RequireAuth decides later
// whether the route needed an identity.
func Authenticate(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}
		claims, err := p.Parse(raw)
		if err != nil {
			c.Set(ctxKeyAuthErr, "invalid_token")
			c.Next()
			return
		}
		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyRole, claims.Role)
		c.Set(ctxKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) != "" {
			c.Next()
			return
		}
		reason := "missing_token"
		if v, ok := c.Get(ctxKeyAuthErr); ok {
			reason = asString(v)
		}
		authRejections.WithLabelValues(reason).Inc()
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
}

// RequireRole rejects callers whose role is not one of roles with 403.
// Anonymous callers get 401.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	requireAuth := RequireAuth()
	return func(c *gin.Context) {
		if UserID(c) == "" {
			requireAuth(c)
			return
		}
		if _, ok := allowed[Role(c)]; !ok {
			authRejections.WithLabelValues("wrong_role").Inc()
			abortJSON(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *gin.Context) string { return ctxString(c, ctxKeyUserID) }

// Role returns the authenticated role, or "".
func Role(c *gin.Context) string { return ctxString(c, ctxKeyRole) }

// Email returns the authenticated email, or "".
func Email(c *gin.Context) string { return ctxString(c, ctxKeyEmail) }

func ctxString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		return asString(v)
	}
	return ""
}

func bearerToken(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// abortJSON writes the same envelope as handlers.ErrorResponse. The
// middleware package cannot import handlers, which imports it.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
