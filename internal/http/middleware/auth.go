package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenParser validates a bearer token and returns its role.
type TokenParser interface {
	ParseToken(raw string) (string, error)
}

// BearerAuth sets "userRole" from a valid Authorization: Bearer token. RequireRoles does the rest.
func BearerAuth(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if h == "" || raw == "" || raw == h {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "missing bearer token",
				"code":       "admin_auth_failure",
				"request_id": GetRequestID(c),
			})
			return
		}
		role, err := p.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      err.Error(),
				"code":       "admin_auth_failure",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Set("userRole", role)
		c.Next()
	}
}
