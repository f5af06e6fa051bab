package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BetaCodeHandler beta invitation code endpoints.
type BetaCodeHandler struct {
	betaSvc service.BetaCodeService
}

// NewBetaCodeHandler creates a BetaCodeHandler.
func NewBetaCodeHandler(betaSvc service.BetaCodeService) *BetaCodeHandler {
	return &BetaCodeHandler{betaSvc: betaSvc}
}

// Redeem claims an invitation code for the caller.
// POST /api/v1/beta/redeem
func (h *BetaCodeHandler) Redeem(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RedeemBetaCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.betaSvc.Redeem(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Generate creates a batch of codes for an organization.
// POST /api/v1/admin/beta-codes
func (h *BetaCodeHandler) Generate(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.GenerateBetaCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.betaSvc.GenerateBatch(c.Request.Context(), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, resp)
}

// List GET /api/v1/admin/beta-codes?organization=&batch_id=&used=
func (h *BetaCodeHandler) List(c *gin.Context) {
	var req dto.BetaCodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	codes, total, err := h.betaSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKPage(c, codes, total, req.GetPage(), req.GetPageSize())
}

// Export downloads codes as an .xlsx workbook.
// GET /api/v1/admin/beta-codes/export?batch_id=
func (h *BetaCodeHandler) Export(c *gin.Context) {
	var req dto.BetaCodeExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.BatchID == "" && req.Organization == "" {
		response.BadRequest(c, CodeValidation, "batch_id or organization is required")
		return
	}

	buf, filename, err := h.betaSvc.Export(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
