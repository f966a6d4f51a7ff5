package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses uncacheable. Poll clients replace their list with
// every response, so an intermediary must never serve a stale one.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
