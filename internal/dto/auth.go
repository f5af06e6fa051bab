package dto

// ── auth DTOs ──

// TokenResponse an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}
