package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/middleware"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/response"
	"github.com/stemsi/olympiad-backend/internal/service"
	"github.com/stemsi/olympiad-backend/internal/validator"
)

// ExerciseHandler handles exercise authoring and test case allocation.
type ExerciseHandler struct {
	registry  *service.RegistryService
	allocator *service.AllocatorService
	log       zerolog.Logger
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(registry *service.RegistryService, allocator *service.AllocatorService, log zerolog.Logger) *ExerciseHandler {
	return &ExerciseHandler{
		registry:  registry,
		allocator: allocator,
		log:       log.With().Str("component", "exercise_handler").Logger(),
	}
}

// ListExercises godoc
// GET /api/v1/organizer/exams/:id/exercises
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	exercises, err := h.registry.ListExercises(c.Request.Context(), examID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exercises": exercises})
}

// CreateExercise godoc
// POST /api/v1/organizer/exams/:id/exercises
// Appends an exercise. Participants already enrolled in the exam are
// enrolled into it and receive test cases.
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.ExerciseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	x, err := h.registry.CreateExercise(c.Request.Context(), examID, claims.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exercise": x})
}

// UpdateExercise godoc
// PUT /api/v1/organizer/exercises/:id
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	exerciseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.ExerciseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	x, err := h.registry.UpdateExercise(c.Request.Context(), exerciseID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exercise": x})
}

// DeleteExercise godoc
// DELETE /api/v1/organizer/exercises/:id
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	exerciseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteExercise(c.Request.Context(), exerciseID); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Allocate godoc
// POST /api/v1/organizer/exercises/:id/test-cases/allocate
// Assigns test cases to enrollments that have none. Existing assignments
// are untouched.
func (h *ExerciseHandler) Allocate(c *gin.Context) {
	exerciseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.allocator.AllocateUnassigned(c.Request.Context(), exerciseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Redistribute godoc
// POST /api/v1/organizer/exercises/:id/test-cases/redistribute
// Reassigns every enrollment from a fresh shuffle of the pool.
func (h *ExerciseHandler) Redistribute(c *gin.Context) {
	exerciseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.allocator.RedistributeAll(c.Request.Context(), exerciseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ClearTestCases godoc
// DELETE /api/v1/organizer/exercises/:id/test-cases
// Removes the pool and every assignment, and turns test cases off.
func (h *ExerciseHandler) ClearTestCases(c *gin.Context) {
	exerciseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.allocator.ClearAssignments(c.Request.Context(), exerciseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}
