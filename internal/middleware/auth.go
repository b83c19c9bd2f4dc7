package middleware

import (
	"net/http"
	"strings"

	"docverify/internal/domain"
	"docverify/internal/pkg/jwt"
	"docverify/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates the bearer token and stores the principal in the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, strings.ToLower(claims.Role))
		c.Next()
	}
}

// CurrentUser returns the principal set by JWTAuth.
func CurrentUser(c *gin.Context) (string, domain.Role, bool) {
	userID := c.GetString(ctxUserID)
	if userID == "" {
		return "", "", false
	}
	return userID, domain.Role(c.GetString(ctxRole)), true
}
