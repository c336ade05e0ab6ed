// README: Firebase bearer-token auth; stores caller uid, role and token on the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rideflow/internal/infra"
	"rideflow/internal/types"
)

const (
	ctxUID   = "caller_uid"
	ctxRole  = "caller_role"
	ctxToken = "caller_token"
)

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, token.Role())
		c.Set(ctxToken, raw)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

// CallerRole defaults to rider when the request was not authenticated.
func CallerRole(c *gin.Context) types.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(types.Role); ok {
			return r
		}
	}
	return types.RoleRider
}

// CallerToken is the raw ID token, forwarded to the ride backend.
func CallerToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}
