package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// AuthHandler token endpoints.
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Logout revokes the caller's token.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := MustGetUserID(c); !ok {
		return
	}

	jti, expiresAt := tokenMeta(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, expiresAt); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}
