package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured frontend origins. Preflight requests are answered
// before auth middleware runs.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
	if len(allowedOrigins) == 0 {
		// same-origin only
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}
