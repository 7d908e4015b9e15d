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

// ExamHandler handles exam management endpoints for organizers.
type ExamHandler struct {
	registry *service.RegistryService
	log      zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(registry *service.RegistryService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		registry: registry,
		log:      log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/organizer/exams
// Lists exams the organizer is referent of or sits on the committee of.
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.registry.ListExamsForOrganizer(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/organizer/exams
// Creates an exam with the caller as referent.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.registry.CreateExam(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/organizer/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	exam, err := h.registry.GetExam(c.Request.Context(), examID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/organizer/exams/:id
// Replaces the exam's schedule and settings.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.registry.UpdateExam(c.Request.Context(), examID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/organizer/exams/:id
// Deletes the exam with its exercises and enrollments. Referent only.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteExam(c.Request.Context(), examID); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddCommitteeMember godoc
// POST /api/v1/organizer/exams/:id/committee
// Adds another organizer, by username, to the exam committee.
func (h *ExamHandler) AddCommitteeMember(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.AddCommitteeMemberRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.registry.AddCommitteeMember(c.Request.Context(), examID, claims.UserID, req.Username); err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{})
}
