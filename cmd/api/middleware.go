package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDMiddleware reads the caller identity from the X-User-ID header. The
// service runs behind a gateway that authenticates users and injects the
// header; requests arriving without it are rejected.
func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			c.Abort()
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}
