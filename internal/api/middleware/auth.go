package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/jwt"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// Blacklist reports whether a token id has been revoked.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// UserSyncer mirrors the token's identity into the local users table.
type UserSyncer interface {
	Sync(ctx context.Context, userID, email string) (*model.User, error)
}

// JWTAuth verifies the Authorization: Bearer <token> header.
// blacklist may be nil, in which case revocation is not checked.
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		if claims.TokenType != "" && claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "invalid token type")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis outages fail open.
				logger.Warn("token blacklist lookup failed", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("token_jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_exp", claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// SyncUser makes sure the caller exists locally and replaces the token's
// role with the stored one. Must run after JWTAuth.
func SyncUser(users UserSyncer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			response.Unauthorized(c, 10002, "not authenticated")
			c.Abort()
			return
		}

		user, err := users.Sync(c.Request.Context(), userID, c.GetString("email"))
		if err != nil {
			switch {
			case errors.Is(err, pkgerrors.ErrAlreadyUsed):
				response.Conflict(c, 30001, pkgerrors.Message(err, "account conflict"))
			case errors.Is(err, pkgerrors.ErrValidation):
				response.BadRequest(c, 10001, pkgerrors.Message(err, "invalid identity"))
			default:
				logger.Error("sync user failed", zap.String("user_id", userID), zap.Error(err))
				response.InternalError(c)
			}
			c.Abort()
			return
		}

		c.Set("role", user.Role)
		c.Next()
	}
}

// RoleAuth allows the request when the caller has one of allowedRoles.
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		if userRole == "" {
			response.Unauthorized(c, 10002, "not authenticated")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "permission denied")
		c.Abort()
	}
}
