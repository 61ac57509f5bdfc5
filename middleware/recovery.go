package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a panic into a 500 and logs it with a stack trace.
func Recovery(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				lg.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("request_id", RequestIDFrom(c)),
					zap.Stack("stack"),
				)
				c.Header("Connection", "close")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal server error",
					"success": false,
				})
			}
		}()
		c.Next()
	}
}
