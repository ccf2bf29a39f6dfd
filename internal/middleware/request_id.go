package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clinicdesk/internal/api"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags every request and carries the id on to backend calls made while serving it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(api.WithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}
