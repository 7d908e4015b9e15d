package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/logger"
	"github.com/stemsi/olympiad-backend/internal/response"
	"github.com/stemsi/olympiad-backend/internal/service"
)

// specificCodes gives a few domain errors their own code instead of the
// generic one of their class.
var specificCodes = []struct {
	err  error
	code response.ErrCode
}{
	{service.ErrEnrollmentNotFound, response.ErrNotEnrolled},
	{service.ErrJobNotFound, response.ErrJobNotFound},
	{service.ErrTestCasesDisabled, response.ErrTestCasesDisabled},
	{service.ErrAllocationConflict, response.ErrAllocationConflict},
	{service.ErrAlreadyCommitteeMember, response.ErrAlreadyCommitteeMember},
}

// classStatus maps each error class onto its HTTP status and default code.
var classStatus = []struct {
	class  error
	status int
	code   response.ErrCode
}{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrState, http.StatusConflict, response.ErrExamNotOpen},
	{service.ErrLimitExceeded, http.StatusForbidden, response.ErrSubmissionLimit},
	{service.ErrValidation, http.StatusBadRequest, response.ErrValidation},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
}

// respondError writes the envelope for a service error. Unclassified errors
// are logged and reported as internal.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	respondErrorWithFields(c, log, err, nil)
}

func respondErrorWithFields(c *gin.Context, log zerolog.Logger, err error, fields map[string]string) {
	for _, cs := range classStatus {
		if !errors.Is(err, cs.class) {
			continue
		}
		code := cs.code
		for _, sc := range specificCodes {
			if errors.Is(err, sc.err) {
				code = sc.code
				break
			}
		}
		if cs.status == http.StatusBadRequest {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["detail"] = err.Error()
		}
		response.FailWithFields(c, cs.status, code, fields)
		return
	}

	reqLog := logger.FromContext(c.Request.Context(), log)
	reqLog.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// parseID reads a positive int64 path parameter, writing a 400 on failure.
func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// statusURL is where a participant can read the exam's current state.
func statusURL(examID int64) string {
	return fmt.Sprintf("/api/v1/participant/exams/%d", examID)
}
