package middleware

import (
	"net/http"
	"strings"

	"filmrental/internal/domain"
	"filmrental/internal/pkg/jwt"
	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// JWTAuth verifies the bearer token and stores the caller's identity on the context.
// Websocket clients that cannot set headers may pass the token as ?access_token=.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			c.Abort()
			return
		}

		claims, err := j.ValidateToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			c.Abort()
			return
		}

		role := domain.Role(strings.ToLower(claims.Role))
		if role != domain.RoleAdmin {
			role = domain.RoleStudent
		}
		actor := domain.ActorIdentity{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  role,
		}
		c.Set(actorKey, actor)
		c.Set("user_id", actor.ID)
		c.Set("role", string(actor.Role))
		c.Next()
	}
}

// ActorFrom returns the identity stored by JWTAuth.
func ActorFrom(c *gin.Context) (domain.ActorIdentity, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.ActorIdentity{}, false
	}
	actor, ok := v.(domain.ActorIdentity)
	return actor, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// CurrentActor is ActorFrom for handlers: it writes 401 and returns false when the
// request carries no identity.
func CurrentActor(c *gin.Context) (domain.ActorIdentity, bool) {
	actor, ok := ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return domain.ActorIdentity{}, false
	}
	return actor, true
}
