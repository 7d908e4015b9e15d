package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// Error classes. Handlers map these onto HTTP statuses; every specific error
// below wraps exactly one of them.
var (
	ErrNotFound      = errors.New("not found")
	ErrState         = errors.New("exam is not open")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
)

// Domain errors.
var (
	ErrExamNotFound       = fmt.Errorf("%w: exam", ErrNotFound)
	ErrExerciseNotFound   = fmt.Errorf("%w: exercise", ErrNotFound)
	ErrEnrollmentNotFound = fmt.Errorf("%w: enrollment", ErrNotFound)
	ErrGroupNotFound      = fmt.Errorf("%w: group", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrJobNotFound        = fmt.Errorf("%w: job", ErrNotFound)

	ErrExamNotStarted = fmt.Errorf("%w: exam has not started", ErrState)
	ErrTimeElapsed    = fmt.Errorf("%w: personal time window elapsed", ErrState)
	ErrExamClosed     = fmt.Errorf("%w: exam is closed", ErrState)

	ErrSubmissionLimit = fmt.Errorf("%w: submission limit reached", ErrLimitExceeded)

	ErrInvalidWindow       = fmt.Errorf("%w: end must not precede start", ErrValidation)
	ErrDurationRequired    = fmt.Errorf("%w: enforced duration requires duration_minutes", ErrValidation)
	ErrTestCasesDisabled   = fmt.Errorf("%w: exercise does not use test cases", ErrValidation)
	ErrUnknownParticipants = fmt.Errorf("%w: unknown participant ids", ErrValidation)
	ErrEmptySubmission     = fmt.Errorf("%w: code or answer is required", ErrValidation)
	ErrCodeRequired        = fmt.Errorf("%w: exercise requires code", ErrValidation)
	ErrCodeTooLong         = fmt.Errorf("%w: code exceeds %d characters", ErrValidation, model.MaxCodeLength)
	ErrAnswerTooLong       = fmt.Errorf("%w: answer exceeds %d characters", ErrValidation, model.MaxAnswerLength)
	ErrMissingExercise     = fmt.Errorf("%w: exercise id is required", ErrValidation)
	ErrCommitteeSelf       = fmt.Errorf("%w: cannot add yourself to the committee", ErrValidation)
	ErrNotAnOrganizer      = fmt.Errorf("%w: user is not an organizer", ErrValidation)
	ErrGroupTooLarge       = fmt.Errorf("%w: group exceeds %d participants", ErrValidation, model.MaxParticipantsPerGroup)

	ErrAlreadyCommitteeMember = fmt.Errorf("%w: user already sits on the committee", ErrConflict)
	ErrAllocationConflict     = fmt.Errorf("%w: enrollment assigned concurrently", ErrConflict)
	ErrSubmissionConflict     = fmt.Errorf("%w: submission raced with another write", ErrConflict)
)

// stateError maps a non-open exam state onto its error.
func stateError(state model.ExamState) error {
	switch state {
	case model.ExamStateNotStarted:
		return ErrExamNotStarted
	case model.ExamStateTimeElapsed:
		return ErrTimeElapsed
	case model.ExamStateClosed:
		return ErrExamClosed
	}
	return nil
}

// notFound translates a missing row into the given domain error.
func notFound(err, target error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return err
}
