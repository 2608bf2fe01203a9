package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"filmrental/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newProtectedRouter(j *jwt.Service, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(j))
	router.Use(extra...)
	router.GET("/protected", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "name": actor.Name})
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	token, _ := j.GenerateToken("stu-42", "Lee", "lee@film.ac.kr", "student")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newProtectedRouter(j).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stu-42")
	assert.Contains(t, w.Body.String(), "student")
}

func TestJWTAuth_QueryTokenFallback(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	token, _ := j.GenerateToken("adm-1", "Park", "", "admin")

	w := httptest.NewRecorder()
	newProtectedRouter(j).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?access_token="+token, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}

func TestJWTAuth_UnknownRoleIsStudent(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	token, _ := j.GenerateToken("x-1", "", "", "superuser")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newProtectedRouter(j, AdminOnly()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	j := jwt.New("wrong-secret", time.Hour)

	for _, header := range []string{"", "Bearer invalid-jwt-here", "Basic abc"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		newProtectedRouter(j).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	}
}

func TestAdminOnly(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	admin, _ := j.GenerateToken("adm-1", "Park", "", "admin")
	student, _ := j.GenerateToken("stu-1", "Lee", "", "student")
	router := newProtectedRouter(j, AdminOnly())

	for token, want := range map[string]int{admin: http.StatusOK, student: http.StatusForbidden} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}
