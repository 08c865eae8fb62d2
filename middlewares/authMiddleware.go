package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
)

type authString string

// AuthMiddleware parses the bearer token and places the caller's identity in the request context.
// Requests without a token pass through; RequireAuth rejects them.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		role := models.Role(strings.ToUpper(customClaim.Role))
		if role != models.RoleAdmin && role != models.RoleAgent && role != models.RolePangkalan {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}
		if role == models.RolePangkalan && customClaim.TenantId <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant id is required"})
			return
		}

		c.Request = c.Request.WithContext(withIdentity(c.Request.Context(), token, customClaim, role))
		c.Next()
	}
}

func withIdentity(ctx context.Context, token string, claim *utils.JwtCustomClaim, role models.Role) context.Context {
	ctx = context.WithValue(ctx, authString("auth"), claim)
	ctx = utils.SetTokenInContext(ctx, token)
	ctx = utils.SetRoleInContext(ctx, string(role))
	ctx = utils.SetUserIdInContext(ctx, claim.UserId)
	ctx = utils.SetUserNameInContext(ctx, claim.UserName)
	if claim.TenantId > 0 {
		ctx = utils.SetTenantIdInContext(ctx, claim.TenantId)
	}
	return utils.SetIsAdminInContext(ctx, role.IsDistributor())
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}

// RequireAuth rejects requests that carried no valid token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireRole allows only the listed roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetRoleFromContext(c.Request.Context())
		for _, r := range roles {
			if string(r) == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
