package jwtmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Keys under which AuthRequired stores the principal in the gin context.
const (
	ContextUserID    = "userID"
	ContextEmail     = "email"
	ContextSessionID = "sessionID"
)

// SessionChecker reports whether the session behind an access token is still usable.
// It returns a non-nil error for revoked, expired or unknown sessions.
type SessionChecker interface {
	ValidateSession(ctx context.Context, sessionID string) error
}

// AuthRequired returns a Gin middleware function that validates JWT tokens
// and restricts access to authenticated users only.
// When sessions is non-nil the token's session must also be active, so a logout takes effect immediately.
func AuthRequired(secret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		if secret == "" {
			// Server misconfiguration (JWT_SECRET not set)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		p, err := Parse(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if sessions != nil {
			if p.SessionID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			if err := sessions.ValidateSession(c.Request.Context(), p.SessionID); err != nil {
				slog.Debug("session rejected", "user_id", p.UserID, "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
		}

		c.Set(ContextUserID, p.UserID)
		c.Set(ContextEmail, p.Email)
		c.Set(ContextSessionID, p.SessionID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" outside AuthRequired.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// SessionID returns the session bound to the current access token.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
