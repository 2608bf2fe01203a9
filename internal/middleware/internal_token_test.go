package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newInternalRouter(token string, ips []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/internal/jobs/sweep", InternalTokenAuth(token, ips), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestInternalTokenAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		ips    []string
		header string
		want   int
	}{
		{"disabled without token", "", nil, "Bearer anything", http.StatusForbidden},
		{"missing header", "cron-token", nil, "", http.StatusUnauthorized},
		{"wrong scheme", "cron-token", nil, "Basic cron-token", http.StatusUnauthorized},
		{"wrong token", "cron-token", nil, "Bearer nope", http.StatusForbidden},
		{"ip not allowed", "cron-token", []string{"10.0.0.9"}, "Bearer cron-token", http.StatusForbidden},
		{"ok", "cron-token", nil, "Bearer cron-token", http.StatusNoContent},
		{"ok from allowed ip", "cron-token", []string{"192.0.2.1"}, "Bearer cron-token", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/internal/jobs/sweep", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			newInternalRouter(tt.token, tt.ips).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
