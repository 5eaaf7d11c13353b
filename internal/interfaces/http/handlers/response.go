// internal/interfaces/http/handlers/response.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// respondSuccess writes the {success, data, timestamp} envelope
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError writes the {error: {message}} envelope
func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message},
	})
}
