package middleware

import (
	"net/http"
	"strings"

	"salun/config"
	"salun/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the access token and sets user_id, mobile and role
// in context. Both "Bearer <token>" and a bare token are accepted.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
			return
		}
		token := header
		if scheme, rest, ok := strings.Cut(header, " "); ok {
			if !strings.EqualFold(scheme, "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization format"})
				return
			}
			token = strings.TrimSpace(rest)
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("mobile", claims.Mobile)
		c.Set("role", claims.Role)
		c.Set("claims", claims)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	v, _ := c.Get("user_id")
	if v == nil {
		return 0
	}
	return v.(uint)
}

// GetRole returns the authenticated role, or "".
func GetRole(c *gin.Context) string {
	return c.GetString("role")
}
