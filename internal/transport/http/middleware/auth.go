package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"devconnect/internal/pkg/jwtutil"
	"devconnect/internal/transport/http/response"
)

// TokenHeader carries the bearer token on every authenticated request.
const TokenHeader = "x-auth-token"

const ContextUserIDKey = "user_id"

// Auth gates private routes: it verifies the x-auth-token header and puts
// the resolved user id into the request context. It has no other effect.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(TokenHeader))
		if token == "" {
			response.Msg(c, http.StatusUnauthorized, "No token, authorization denied")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.User.ID)
		c.Next()
	}
}

// UserID returns the id the Auth middleware stored for this request.
func UserID(c *gin.Context) (string, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
