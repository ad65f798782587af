package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS admits browser clients from the configured origin. The wildcard keeps
// local dashboard development working; a pinned origin additionally allows
// credentialed requests.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.Request.Header.Get("Origin")

		switch {
		case allowedOrigin == "*":
			header.Set("Access-Control-Allow-Origin", "*")
		case origin == allowedOrigin:
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		default:
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
