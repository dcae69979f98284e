package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lotline/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// Trace middleware assigns each request a correlation id.
// Incoming X-Request-ID is honored, otherwise one is generated.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}
