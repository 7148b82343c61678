// README: Auth middleware; resolves bearer tokens through the session store.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"convoy/internal/infra"
	"convoy/internal/types"
)

const (
	callerIDKey   = "caller_id"
	callerRoleKey = "caller_role"
)

// Auth resolves the Authorization header into a caller identity. Requests
// without a resolvable session are rejected before any handler runs.
func Auth(verifier infra.SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		c.Set(callerIDKey, session.UserID)
		c.Set(callerRoleKey, session.Role)
		c.Next()
	}
}

// CallerID returns the authenticated caller id set by Auth.
func CallerID(c *gin.Context) types.ID {
	if v, ok := c.Get(callerIDKey); ok {
		if id, ok := v.(types.ID); ok {
			return id
		}
	}
	return 0
}

// CallerRole returns the authenticated caller role set by Auth.
func CallerRole(c *gin.Context) types.Role {
	if v, ok := c.Get(callerRoleKey); ok {
		if role, ok := v.(types.Role); ok {
			return role
		}
	}
	return ""
}
