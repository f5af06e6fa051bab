package dto

// ── beta invitation code DTOs ──

// RedeemBetaCodeRequest POST /beta/redeem.
type RedeemBetaCodeRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// RedeemBetaCodeResponse a successful redemption.
type RedeemBetaCodeResponse struct {
	Code         string `json:"code"`
	Organization string `json:"organization"`
	Role         string `json:"role"`
	RedeemedAt   string `json:"redeemed_at"`
}

// GenerateBetaCodesRequest admin batch generation.
type GenerateBetaCodesRequest struct {
	Organization  string `json:"organization"    binding:"required,max=200"`
	Count         int    `json:"count"           binding:"required,min=1"`
	ExpiresInDays int    `json:"expires_in_days" binding:"omitempty,min=1,max=3650"`
}

// GenerateBetaCodesResponse a freshly generated batch.
type GenerateBetaCodesResponse struct {
	BatchID      string   `json:"batch_id"`
	Organization string   `json:"organization"`
	ExpiresAt    *string  `json:"expires_at"`
	Codes        []string `json:"codes"`
}

// BetaCodeListRequest admin list query.
type BetaCodeListRequest struct {
	PaginationRequest
	Organization string `form:"organization" binding:"omitempty,max=200"`
	BatchID      string `form:"batch_id"     binding:"omitempty,uuid"`
	Used         *bool  `form:"used"`
}

// BetaCodeExportRequest admin export query.
type BetaCodeExportRequest struct {
	BatchID      string `form:"batch_id"     binding:"omitempty,uuid"`
	Organization string `form:"organization" binding:"omitempty,max=200"`
}

// BetaCodeResponse admin view of a code.
type BetaCodeResponse struct {
	Code         string  `json:"code"`
	Organization string  `json:"organization"`
	BatchID      string  `json:"batch_id"`
	IsUsed       bool    `json:"is_used"`
	UsedBy       *string `json:"used_by"`
	UsedAt       *string `json:"used_at"`
	ExpiresAt    *string `json:"expires_at"`
	CreatedAt    string  `json:"created_at"`
}
