package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-interview-backend/internal/services"
)

// Identity headers set by the upstream gateway after authentication.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	userIDKey = "userID"
	callerKey = "caller"
)

// Identity resolves the caller from the gateway headers. Requests without a
// user ID, or with a role other than candidate or hr, are rejected with 401.
// A missing role defaults to candidate.
//
// The request logger is enriched with user_id and role, so it must run after
// Logger().
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := services.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if role == "" {
			role = services.RoleCandidate
		}
		if id == "" || (role != services.RoleCandidate && role != services.RoleHR) {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": asString(rid),
				"code":       "unauthorized",
				"message":    "missing or invalid caller identity",
			})
			return
		}

		caller := services.Caller{ID: id, Role: role}
		c.Set(userIDKey, id)
		c.Set(callerKey, caller)

		l := LoggerFrom(c).With().Str("user_id", id).Str("role", string(role)).Logger()
		attachLogger(c, l)

		c.Next()
	}
}

// CallerFrom returns the caller resolved by Identity.
func CallerFrom(c *gin.Context) (services.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok
}
