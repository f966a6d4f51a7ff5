package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbmc/portal-api/internal/handler"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
	"github.com/kbmc/portal-api/pkg/logger"
)

// ErrorHandler logs errors handlers attached with c.Error. If the handler
// did not write a response, the last error is rendered.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			status := apperrors.StatusCode(e.Err)
			if e.IsType(gin.ErrorTypeBind) {
				status = http.StatusBadRequest
			}
			event := log.ZL.Warn()
			if status >= 500 {
				event = log.ZL.Error()
			}
			event.
				Err(e.Err).
				Int("status", status).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		c.JSON(apperrors.StatusCode(lastErr), handler.NewErrorResponse(apperrors.Message(lastErr)))
	}
}
