package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/service"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// ExerciseHandler gap-fill exercise endpoints.
type ExerciseHandler struct {
	exerciseSvc service.ExerciseService
}

// NewExerciseHandler creates an ExerciseHandler.
func NewExerciseHandler(exerciseSvc service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseSvc: exerciseSvc}
}

// ListExercises GET /api/v1/exercises?unit=
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	var req dto.ExerciseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.exerciseSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, list)
}

// GetExercise GET /api/v1/exercises/:id
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	e, err := h.exerciseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, e)
}

// Submit grades a submission and records the progress it earned.
// POST /api/v1/exercises/:id/submit
func (h *ExerciseHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.exerciseSvc.Submit(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// CreateExercise POST /api/v1/admin/exercises
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req dto.CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	e, err := h.exerciseSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, e)
}
