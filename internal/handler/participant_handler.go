package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/middleware"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/response"
	"github.com/stemsi/olympiad-backend/internal/service"
	"github.com/stemsi/olympiad-backend/internal/validator"
)

// ParticipantHandler serves the participant portal.
type ParticipantHandler struct {
	registry *service.RegistryService
	clock    *service.SessionClock
	gate     *service.SubmissionGate
	log      zerolog.Logger
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(
	registry *service.RegistryService,
	clock *service.SessionClock,
	gate *service.SubmissionGate,
	log zerolog.Logger,
) *ParticipantHandler {
	return &ParticipantHandler{
		registry: registry,
		clock:    clock,
		gate:     gate,
		log:      log.With().Str("component", "participant_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/participant/exams
// Lists the exams the participant is enrolled in.
func (h *ParticipantHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.registry.ListExamsForParticipant(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExamStatus godoc
// GET /api/v1/participant/exams/:id
// Returns the exam state and remaining time. Opening an exam with an
// enforced duration starts the participant's personal clock.
func (h *ParticipantHandler) GetExamStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	status, err := h.clock.Status(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// Submit godoc
// POST /api/v1/participant/submissions
// Stores the participant's code and answer for an exercise. Correctness is
// only reported when the exercise gives live feedback.
func (h *ParticipantHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.gate.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		if errors.Is(err, service.ErrState) {
			h.respondNotOpen(c, req.ExerciseID, err)
			return
		}
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res.ForParticipant())
}

// respondNotOpen points the participant at the exam status so the client can
// refresh its clock.
func (h *ParticipantHandler) respondNotOpen(c *gin.Context, exerciseID int64, err error) {
	fields := map[string]string{"reason": err.Error()}
	if x, lookupErr := h.registry.GetExercise(c.Request.Context(), exerciseID); lookupErr == nil {
		fields["status_url"] = statusURL(x.ExamID)
	}
	respondErrorWithFields(c, h.log, err, fields)
}
