package dto

// ── guest access DTOs ──

// ActivateGuestRequest POST /guest/activate.
type ActivateGuestRequest struct {
	Code string `json:"code" binding:"required,max=50"`
}

// GuestSessionResponse status of a guest session.
type GuestSessionResponse struct {
	SessionID        string  `json:"session_id"`
	StartedAt        string  `json:"started_at"`
	ExpiresAt        string  `json:"expires_at"`
	RemainingSeconds int64   `json:"remaining_seconds"`
	PercentRemaining float64 `json:"percent_remaining"`
	PercentElapsed   float64 `json:"percent_elapsed"`
	Expired          bool    `json:"expired"`
	Converted        bool    `json:"converted"`
	Active           bool    `json:"active"`
}

// GuestActivationResponse the guest identity and its session.
type GuestActivationResponse struct {
	UserID  string               `json:"user_id"`
	Token   TokenResponse        `json:"token"`
	Session GuestSessionResponse `json:"session"`
}

// ConvertGuestRequest POST /guest/convert: the permanent account email.
type ConvertGuestRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// CreateGuestCodeRequest admin guest code creation.
type CreateGuestCodeRequest struct {
	Code            string `json:"code"             binding:"required,max=50"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=525600"`
	MaxActivations  int    `json:"max_activations"  binding:"omitempty,min=1,max=100000"`
}

// GuestCodeResponse a guest code and its usage.
type GuestCodeResponse struct {
	Code            string `json:"code"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxActivations  int    `json:"max_activations"`
	Activations     int    `json:"activations"`
}
