package dto

// ── progress DTOs ──

// CompleteRequest raw completion posted by mini-games.
type CompleteRequest struct {
	Correct  *int   `json:"correct"   binding:"required,min=0"`
	Total    *int   `json:"total"     binding:"required,min=1"`
	Source   string `json:"source"    binding:"omitempty,oneof=exercise game"`
	SourceID string `json:"source_id" binding:"omitempty,max=64"`
}

// CompletionResponse outcome of one completion.
type CompletionResponse struct {
	BaseXP          int      `json:"base_xp"`
	BonusXP         int      `json:"bonus_xp"`
	XPGained        int      `json:"xp_gained"`
	TotalXP         int      `json:"total_xp"`
	Level           int      `json:"level"`
	LeveledUp       bool     `json:"leveled_up"`
	Achievements    []string `json:"achievements"`
	NewAchievements []string `json:"new_achievements"`
	Streak          int      `json:"streak"`
	IsNewDay        bool     `json:"is_new_day"`
}

// ProgressResponse a user's progress with the level breakdown.
type ProgressResponse struct {
	UserID               string  `json:"user_id"`
	XP                   int     `json:"xp"`
	Level                int     `json:"level"`
	XPIntoLevel          int     `json:"xp_into_level"`
	XPToNextLevel        int     `json:"xp_to_next_level"`
	LevelProgressPercent float64 `json:"level_progress_percent"`
	Streak               int     `json:"streak"`
	LastActiveDate       *string `json:"last_active_date"`
	ExercisesCompleted   int     `json:"exercises_completed"`
	PerfectScores        int     `json:"perfect_scores"`
}

// PointsHistoryRequest GET /progress/history.
type PointsHistoryRequest struct {
	PaginationRequest
}

// PointsHistoryItem one points history row.
type PointsHistoryItem struct {
	ID           string `json:"id"`
	PointsChange int    `json:"points_change"`
	Reason       string `json:"reason"`
	SourceID     string `json:"source_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}
