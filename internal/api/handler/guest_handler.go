package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// GuestHandler guest trial endpoints.
type GuestHandler struct {
	guestSvc service.GuestService
}

// NewGuestHandler creates a GuestHandler.
func NewGuestHandler(guestSvc service.GuestService) *GuestHandler {
	return &GuestHandler{guestSvc: guestSvc}
}

// Activate starts a guest session. No authentication.
// POST /api/v1/guest/activate
func (h *GuestHandler) Activate(c *gin.Context) {
	var req dto.ActivateGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.guestSvc.Activate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}

// Session the caller's guest session countdown.
// GET /api/v1/guest/session
func (h *GuestHandler) Session(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	st, err := h.guestSvc.Status(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, st)
}

// Convert turns the caller's guest account into a regular account.
// POST /api/v1/guest/convert
func (h *GuestHandler) Convert(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConvertGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.guestSvc.Convert(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, user)
}

// CreateCode POST /api/v1/admin/guest-codes
func (h *GuestHandler) CreateCode(c *gin.Context) {
	var req dto.CreateGuestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.guestSvc.CreateCode(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}
