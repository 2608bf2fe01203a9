package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// ErrorLogger tags every request with an id, logs failed requests as key=value
// lines and turns panics into a 500 envelope. Stacks are logged for panics only.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(c, start, "panic", fmt.Sprint(recovered), debug.Stack())
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				c.Abort()
				return
			}

			for _, err := range c.Errors {
				logRequestError(c, start, fmt.Sprintf("%v", err.Type), err.Error(), nil)
				if err.Meta != nil {
					log.Printf("request_error_meta request_id=%s meta=%+v", requestID(c), err.Meta)
				}
			}
			if len(c.Errors) == 0 && c.Writer.Status() >= http.StatusInternalServerError {
				logRequestError(c, start, "http_error", http.StatusText(c.Writer.Status()), nil)
			}
		}()

		c.Next()
	}
}

func logRequestError(c *gin.Context, start time.Time, errType, message string, stack []byte) {
	line := fmt.Sprintf(
		"request_error type=%s status=%d method=%s path=%s query=%s client_ip=%s actor=%s role=%s request_id=%s latency=%s error=%q",
		errType,
		c.Writer.Status(),
		c.Request.Method,
		c.FullPath(),
		c.Request.URL.RawQuery,
		c.ClientIP(),
		c.GetString("user_id"),
		c.GetString("role"),
		requestID(c),
		time.Since(start),
		message,
	)
	if len(stack) > 0 {
		line += " stack=" + string(stack)
	}
	log.Print(line)
}

func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return c.GetHeader(requestIDHeader)
}
