// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-membership/internal/pkg/auth"
)

// Context keys set by the auth middlewares
const (
	CustomerIDKey    = "customer_id"
	CustomerEmailKey = "customer_email"
	StaffKey         = "is_staff"
)

// AuthMiddleware requires a valid storefront customer token
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// StaffMiddleware ensures the customer is a staff account
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(StaffKey); !exists {
			abortUnauthorized(c, "Authentication required")
			return
		}

		if !IsStaffFromContext(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "Staff access required"},
			})
			return
		}

		c.Next()
	}
}

// OptionalAuthMiddleware identifies the customer when a valid token is sent
// and lets anonymous requests through
func OptionalAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		if claims, err := jwtManager.ValidateAccessToken(tokenString); err == nil {
			setClaims(c, claims)
		}

		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(CustomerIDKey, claims.CustomerID)
	c.Set(CustomerEmailKey, claims.Email)
	c.Set(StaffKey, claims.Staff)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": message},
	})
}

// GetCustomerIDFromContext extracts the customer ID from gin context
func GetCustomerIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(CustomerIDKey)
	return id, id != ""
}

// GetCustomerEmailFromContext extracts the customer email from gin context
func GetCustomerEmailFromContext(c *gin.Context) (string, bool) {
	email := c.GetString(CustomerEmailKey)
	return email, email != ""
}

// IsStaffFromContext checks if the customer is staff
func IsStaffFromContext(c *gin.Context) bool {
	return c.GetBool(StaffKey)
}
