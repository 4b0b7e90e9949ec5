package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/common"
)

const RequestIDKey = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a ULID unless the client already sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			generated, err := common.NewULID()
			if err != nil {
				log.Printf("[RequestID] ulid generation failed err=%v", err)
			} else {
				id = generated
			}
		}
		if id != "" {
			c.Set(RequestIDKey, id)
			c.Writer.Header().Set(requestIDHeader, id)
		}
		c.Next()
	}
}
