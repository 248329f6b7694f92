package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"vinatravel/pkg/utils"
)

const (
	actorKey = "actor_id"
	roleKey  = "Role"
)

// ActorMiddleware reads the caller from an optional bearer token. Requests without a
// token pass through anonymously; a token that is present but invalid is rejected.
func ActorMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || secret == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(key, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		actor, err := claims.ActorID()
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// Actor returns the authenticated caller, or nil for anonymous requests.
func Actor(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
