package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// CommunityHandler observations, challenges, leaderboard and dashboard.
type CommunityHandler struct {
	communitySvc   service.CommunityService
	leaderboardSvc service.LeaderboardService
	dashboardSvc   service.DashboardService
}

// NewCommunityHandler creates a CommunityHandler.
func NewCommunityHandler(
	communitySvc service.CommunityService,
	leaderboardSvc service.LeaderboardService,
	dashboardSvc service.DashboardService,
) *CommunityHandler {
	return &CommunityHandler{
		communitySvc:   communitySvc,
		leaderboardSvc: leaderboardSvc,
		dashboardSvc:   dashboardSvc,
	}
}

// CreateObservation POST /api/v1/observations
func (h *CommunityHandler) CreateObservation(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.communitySvc.CreateObservation(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}

// CreateChallenge POST /api/v1/admin/challenges
func (h *CommunityHandler) CreateChallenge(c *gin.Context) {
	var req dto.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.communitySvc.CreateChallenge(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}

// ToggleLike POST /api/v1/observations/:id/like
func (h *CommunityHandler) ToggleLike(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.communitySvc.ToggleLike(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ChallengeProgress GET /api/v1/challenges/:id/progress
func (h *CommunityHandler) ChallengeProgress(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.communitySvc.ChallengeProgress(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Leaderboard GET /api/v1/leaderboard?limit=
func (h *CommunityHandler) Leaderboard(c *gin.Context) {
	var req dto.LeaderboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.leaderboardSvc.Top(c.Request.Context(), req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Dashboard GET /api/v1/dashboard
func (h *CommunityHandler) Dashboard(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.dashboardSvc.Get(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}
