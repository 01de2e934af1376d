// Package middleware provides the gin middleware chain: bearer-token
// authentication, role gates, rate limiting, and request metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/reqflow/internal/auth"
	"github.com/goatkit/reqflow/internal/models"
	"github.com/goatkit/reqflow/internal/workflow"
)

const identityKey = "identity"

// Auth verifies the Authorization bearer token and stores the caller's
// identity in the request context. Requests without a valid token get 401.
func Auth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := jwt.Verify(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(identityKey, workflow.Identity{
			ID:   claims.Subject,
			Name: claims.Name,
			Role: claims.Role,
		})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set. Runs
// after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !allowed[ident.Role] {
			abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller set by Auth.
func CurrentIdentity(c *gin.Context) (workflow.Identity, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return workflow.Identity{}, false
	}
	ident, ok := val.(workflow.Identity)
	return ident, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
