package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// InternalTokenAuth protects scheduler endpoints with a static bearer token. An
// empty allowedIPs list admits any client address.
func InternalTokenAuth(token string, allowedIPs []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			logAuthFailure(c, http.StatusForbidden, "token_not_configured")
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Internal endpoints are disabled")
			c.Abort()
			return
		}

		if !ipAllowed(c, allowedIPs) {
			logAuthFailure(c, http.StatusForbidden, "ip_not_allowed")
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "IP not allowed")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(c, http.StatusUnauthorized, "missing_auth")
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logAuthFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(token)) != 1 {
			logAuthFailure(c, http.StatusForbidden, "invalid_token")
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Invalid internal token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func ipAllowed(c *gin.Context, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	clientIP := c.ClientIP()
	for _, ip := range allowed {
		if ip == clientIP {
			return true
		}
	}
	return false
}

func logAuthFailure(c *gin.Context, status int, reason string) {
	log.Printf("internal_auth status=%d path=%s request_id=%s reason=%s", status, c.Request.URL.Path, requestID(c), reason)
}
