package proxy

import (
	"time"

	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const requestLoggerKey = "mirrorlai.logger"

// requestID tags each request with an ID, echoes it in the response and logs
// one line per request once the handler chain has finished.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		log := logger.Request(id)
		c.Set(requestLoggerKey, log)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		log.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// requestLog returns the logger of the current request.
func requestLog(c *gin.Context) *logger.RequestLogger {
	if v, ok := c.Get(requestLoggerKey); ok {
		if l, ok := v.(*logger.RequestLogger); ok {
			return l
		}
	}
	return logger.Request("-")
}
