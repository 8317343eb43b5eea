package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
)

// RequireAuth validates the bearer token against both signature and the
// session table, and stores the user session on the context.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.ResponseError: "authorization header required"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.ResponseError: "bearer token required"})
			return
		}

		user, err := authService.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.ResponseError: "invalid or expired token"})
			return
		}

		c.Set(constants.ContextKeyUser, *user)
		c.Set(constants.ContextKeyToken, token)
		c.Next()
	}
}

// RequireRole gates a route to the given roles. System admins always pass.
func RequireRole(roles ...constants.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{constants.ResponseError: "authentication required"})
			return
		}
		user, ok := value.(auth.UserSession)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{constants.ResponseError: "invalid session state"})
			return
		}
		if !user.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{constants.ResponseError: "insufficient role"})
			return
		}
		c.Next()
	}
}

// RequireAdmin is shorthand for the admin-only gate.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(constants.RoleAdmin)
}
