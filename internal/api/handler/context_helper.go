package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// MustGetUserID extracts the user_id set by the JWT middleware. When it is
// missing a 401 is written and ok is false; callers return immediately.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, CodeUnauthorized, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, CodeUnauthorized, "not authenticated")
		return "", false
	}
	return s, true
}

// tokenMeta returns the jti and expiry of the caller's token; both are
// zero when the token carried none.
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	expiresAt, _ := exp.(time.Time)
	return jti, expiresAt
}
