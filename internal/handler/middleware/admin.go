package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"cashpoints/referralhub/pkg/response"
)

// AdminAuth guards moderation routes with a shared token. Full
// authentication lives in a separate system; this service only needs to
// keep moderation off the public surface.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Forbidden(c, "admin access disabled")
			c.Abort()
			return
		}

		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid admin token")
			c.Abort()
			return
		}
		c.Next()
	}
}
