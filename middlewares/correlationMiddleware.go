package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/lpg_backend/utils"
)

const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID propagates X-Correlation-ID (generating one when absent) into the request context.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), correlationID))
		c.Header(HeaderCorrelationID, correlationID)
		c.Next()
	}
}
