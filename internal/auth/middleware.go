package auth

import (
	"errors"
	"net/http"
	"strings"

	"call-signaling/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireIdentity verifies the bearer token once per request and injects the
// verified identity into the request context. Handlers never read a user id
// from the request body.
func RequireIdentity(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in", "kind": "unauthenticated"})
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

		id, err := v.Verify(c.Request.Context(), tok)
		if err != nil {
			if errors.Is(err, ErrUpstreamUnavailable) {
				logger.FromGin(c).Warn("identity provider unavailable", "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "identity provider unavailable", "kind": "upstream_unavailable"})
				return
			}
			logger.FromGin(c).Debug("bearer token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in", "kind": "unauthenticated"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", id.UserID)

		c.Next()
	}
}
