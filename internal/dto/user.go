package dto

// ── user DTOs ──

// UserListRequest admin user list query.
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=guest user beta_tester premium admin"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// AssignRoleRequest admin role change.
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user beta_tester premium admin"`
}
