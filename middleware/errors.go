package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"restaurant-api/apperrors"
)

// ErrorResponder renders the last error attached to the context with
// c.Error, unless a response was already written. Store failures are logged
// and their detail is only exposed when debug is set.
func ErrorResponder(lg *zap.Logger, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			appErr = apperrors.Store(err, "internal server error")
		}
		status := apperrors.HTTPStatus(appErr.Kind)

		body := gin.H{
			"error":   appErr.Message,
			"code":    appErr.Kind,
			"success": false,
		}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		if appErr.Kind == apperrors.KindStore {
			lg.Error("Request failed",
				zap.String("request_id", RequestIDFrom(c)),
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)
			body["error"] = "internal server error"
			if debug {
				body["detail"] = err.Error()
			}
		}
		c.JSON(status, body)
	}
}
