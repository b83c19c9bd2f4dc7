package middleware

import (
	"net/http"

	"docverify/internal/domain"
	"docverify/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		_, role, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !allowed[role] {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
