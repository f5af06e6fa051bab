package dto

import "time"

// ── community DTOs ──

// CreateObservationRequest POST /observations.
type CreateObservationRequest struct {
	Title   string `json:"title"   binding:"required,max=200"`
	Species string `json:"species" binding:"omitempty,max=200"`
}

// ObservationResponse a shared sighting.
type ObservationResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Species   string `json:"species"`
	Likes     int    `json:"likes"`
	CreatedAt string `json:"created_at"`
}

// CreateChallengeRequest POST /admin/challenges.
type CreateChallengeRequest struct {
	Title    string    `json:"title"     binding:"required,max=200"`
	TargetXP int       `json:"target_xp" binding:"required,min=1"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at"   binding:"required,gtfield=StartsAt"`
}

// ChallengeResponse a challenge definition.
type ChallengeResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	TargetXP int    `json:"target_xp"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// LikeResponse state after toggling a like.
type LikeResponse struct {
	ObservationID string `json:"observation_id"`
	Liked         bool   `json:"liked"`
	Likes         int    `json:"likes"`
}

// ChallengeProgressResponse a user's standing in a challenge.
type ChallengeProgressResponse struct {
	ChallengeID     string  `json:"challenge_id"`
	Title           string  `json:"title"`
	TargetXP        int     `json:"target_xp"`
	EarnedXP        int     `json:"earned_xp"`
	PercentComplete float64 `json:"percent_complete"`
	Completed       bool    `json:"completed"`
	StartsAt        string  `json:"starts_at"`
	EndsAt          string  `json:"ends_at"`
}

// LeaderboardRequest GET /leaderboard.
type LeaderboardRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// LeaderboardEntry one ranked user.
type LeaderboardEntry struct {
	Rank   int64  `json:"rank"`
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
}

// LeaderboardResponse ranked users and where the ranking came from.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	Source  string             `json:"source"` // cache | database
}

// DashboardResponse GET /dashboard.
type DashboardResponse struct {
	Progress         ProgressResponse            `json:"progress"`
	Rank             int64                       `json:"rank"`
	RecentHistory    []PointsHistoryItem         `json:"recent_history"`
	ActiveChallenges []ChallengeProgressResponse `json:"active_challenges"`
}

// PaymentResponse one recorded checkout.
type PaymentResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// WebhookResponse acknowledgement returned to the payment provider.
type WebhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
