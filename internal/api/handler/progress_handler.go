package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// ProgressHandler XP and streak endpoints.
type ProgressHandler struct {
	progressSvc service.ProgressService
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(progressSvc service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc}
}

// Complete records a raw completion from a mini-game.
// POST /api/v1/progress/complete
func (h *ProgressHandler) Complete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reason := req.Source
	if reason == "" {
		reason = model.PointsReasonGame
	}
	resp, err := h.progressSvc.RecordCompletion(c.Request.Context(), service.Completion{
		UserID:   userID,
		Correct:  *req.Correct,
		Total:    *req.Total,
		Reason:   reason,
		SourceID: req.SourceID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetProgress the caller's progress.
// GET /api/v1/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.progressSvc.GetProgress(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// History the caller's points history, newest first.
// GET /api/v1/progress/history
func (h *ProgressHandler) History(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PointsHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	items, total, err := h.progressSvc.History(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}
