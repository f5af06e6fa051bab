package dto

// ── exercise DTOs ──

// SubmitExerciseRequest answers for each gap, in order.
type SubmitExerciseRequest struct {
	Answers []string `json:"answers" binding:"required,max=200"`
}

// GapResult grading of a single gap.
type GapResult struct {
	Index    int    `json:"index"`
	Given    string `json:"given"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

// ExerciseResultResponse graded submission plus the progress it earned.
type ExerciseResultResponse struct {
	ExerciseID string             `json:"exercise_id"`
	Correct    int                `json:"correct"`
	Total      int                `json:"total"`
	Gaps       []GapResult        `json:"gaps"`
	Completion CompletionResponse `json:"completion"`
}

// CreateExerciseRequest admin exercise authoring.
type CreateExerciseRequest struct {
	Title   string   `json:"title"   binding:"required,max=200"`
	Unit    string   `json:"unit"    binding:"required,max=100"`
	Text    string   `json:"text"    binding:"required"`
	Answers []string `json:"answers" binding:"required,min=1,dive,required"`
}

// ExerciseResponse an exercise without its answers.
type ExerciseResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Unit  string `json:"unit"`
	Text  string `json:"text"`
	Gaps  int    `json:"gaps"`
}

// ExerciseListRequest GET /exercises.
type ExerciseListRequest struct {
	Unit string `form:"unit" binding:"omitempty,max=100"`
}
