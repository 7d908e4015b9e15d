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

// EnrollmentHandler handles enrollment, participant generation and the
// background jobs that carry large batches of either.
type EnrollmentHandler struct {
	enrollment     *service.EnrollmentService
	participants   *service.ParticipantService
	jobs           *service.JobService
	asyncThreshold int
	log            zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler. Batches larger than
// asyncThreshold are always handed to the worker.
func NewEnrollmentHandler(
	enrollment *service.EnrollmentService,
	participants *service.ParticipantService,
	jobs *service.JobService,
	asyncThreshold int,
	log zerolog.Logger,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollment:     enrollment,
		participants:   participants,
		jobs:           jobs,
		asyncThreshold: asyncThreshold,
		log:            log.With().Str("component", "enrollment_handler").Logger(),
	}
}

func (h *EnrollmentHandler) async(c *gin.Context, size int) bool {
	if c.Query("async") == "true" {
		return true
	}
	return h.asyncThreshold > 0 && size > h.asyncThreshold
}

func (h *EnrollmentHandler) enqueue(c *gin.Context, jobType model.JobType, requestedBy int64, payload any) {
	job, err := h.jobs.Enqueue(c.Request.Context(), jobType, requestedBy, payload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", "/api/v1/organizer/jobs/"+job.ID)
	response.Success(c, http.StatusAccepted, gin.H{"job": job})
}

// EnrollParticipants godoc
// POST /api/v1/organizer/exams/:id/enrollments
// Enrolls participants by id. Re-enrolling is a no-op. Runs in the
// background when the batch is large or ?async=true is given.
func (h *EnrollmentHandler) EnrollParticipants(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.EnrollParticipantsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if h.async(c, len(req.ParticipantIDs)) {
		h.enqueue(c, model.JobTypeEnrollParticipants, claims.UserID, model.EnrollParticipantsJob{
			ExamID:         examID,
			ParticipantIDs: req.ParticipantIDs,
		})
		return
	}

	res, err := h.enrollment.EnrollParticipants(c.Request.Context(), examID, req.ParticipantIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// EnrollGroup godoc
// POST /api/v1/organizer/exams/:id/groups/:group_id/enroll
// Links the group to the exam and enrolls its current members.
func (h *EnrollmentHandler) EnrollGroup(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}
	groupID, ok := parseID(c, "group_id")
	if !ok {
		return
	}

	if h.async(c, 0) {
		h.enqueue(c, model.JobTypeEnrollGroup, claims.UserID, model.EnrollGroupJob{ExamID: examID, GroupID: groupID})
		return
	}

	res, err := h.enrollment.EnrollGroup(c.Request.Context(), examID, groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GenerateGroup godoc
// POST /api/v1/organizer/groups
// Mints a group of participant accounts. The plain passwords are returned
// once, in this response or in the job result.
func (h *EnrollmentHandler) GenerateGroup(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.GenerateGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if h.async(c, req.Count) {
		h.enqueue(c, model.JobTypeGenerateParticipant, claims.UserID, model.GenerateParticipantsJob{
			OrganizerID: claims.UserID,
			Name:        req.Name,
			Count:       req.Count,
		})
		return
	}

	res, err := h.participants.GenerateGroup(c.Request.Context(), claims.UserID, req.Name, req.Count)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// ListGroups godoc
// GET /api/v1/organizer/groups
func (h *EnrollmentHandler) ListGroups(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	groups, err := h.participants.ListGroups(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"groups": groups})
}

// GetJob godoc
// GET /api/v1/organizer/jobs/:id
// Returns a background job's status. Jobs are only visible to the
// organizer who queued them.
func (h *EnrollmentHandler) GetJob(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if job.RequestedBy != claims.UserID {
		h.log.Warn().
			Str("job_id", job.ID).
			Int64("requested_by", job.RequestedBy).
			Int64("caller", claims.UserID).
			Msg("Job read by another organizer")
		response.Fail(c, http.StatusNotFound, response.ErrJobNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}
