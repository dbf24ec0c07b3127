package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/auth"
	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

const (
	// ContextKeyPrincipal holds the key for the authenticated principal in Gin context.
	ContextKeyPrincipal = "principal"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
// The token proves identity only: the account is re-fetched on every request,
// so role or premium changes take effect immediately and deleted accounts are
// rejected even while their token is still within its lifetime.
func AuthMiddleware(jwtSecret string, userService services.IUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			errMsg := fmt.Sprintf("Invalid or expired token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		user, err := userService.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve account"})
			return
		}

		c.Set(ContextKeyPrincipal, authz.PrincipalFromUser(user))
		c.Next()
	}
}

// GetPrincipal retrieves the authenticated principal set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (authz.Principal, bool) {
	value, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return authz.Principal{}, false
	}
	principal, ok := value.(authz.Principal)
	return principal, ok
}

// RequireOperation creates a Gin middleware that checks the authenticated
// principal against one policy operation. Assumes AuthMiddleware runs first.
func RequireOperation(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if err := authz.Authorize(principal, op); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
			return
		}
		c.Next()
	}
}
