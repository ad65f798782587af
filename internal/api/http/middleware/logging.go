package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		user := c.GetString(userIDKey)
		if user == "" {
			user = "-"
		}

		log.Printf("[%s] ip=%s user=%s path=%s query=%s code=%d latency=%v",
			method,
			clientIP,
			user,
			path,
			query,
			statusCode,
			latency,
		)
	}
}
