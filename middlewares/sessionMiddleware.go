package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
)

// RevokedTokenKey is the redis key the identity service sets when a token is logged out.
func RevokedTokenKey(token string) string {
	return "RevokedToken:" + token
}

// SessionMiddleware rejects tokens listed as revoked in redis. Without redis it is a no-op.
// Must run after AuthMiddleware.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.GetTokenFromContext(c.Request.Context())
		if !ok || token == "" || config.GetRedisDB() == nil {
			c.Next()
			return
		}
		_, revoked, err := config.GetRedisValue(c.Request.Context(), RevokedTokenKey(token))
		if err != nil {
			config.LogError(config.GetLogger(), "sessionMiddleware.go", "SessionMiddleware", "revocation lookup", nil, err)
			c.Next()
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
