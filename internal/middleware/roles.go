package middleware

import (
	"marketplace_system/internal/domain" // Importing domain models
	"net/http"                           // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// RequireRole rejects requests whose authenticated user does not carry
// one of the allowed roles. The role is re-read from the database so a
// demoted account loses access without waiting for token expiry.
func RequireRole(db *gorm.DB, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Set("role", user.Role)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return RequireRole(db, domain.RoleAdmin)
}
