package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/grading"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SubmissionGate validates, records and grades participant submissions.
type SubmissionGate struct {
	tx          Transactor
	exams       ExamStore
	exercises   ExerciseStore
	testCases   TestCaseStore
	enrollments EnrollmentStore
	clock       *SessionClock
	tracer      trace.Tracer
	log         zerolog.Logger
}

// NewSubmissionGate creates a new SubmissionGate.
func NewSubmissionGate(
	tx Transactor,
	exams ExamStore,
	exercises ExerciseStore,
	testCases TestCaseStore,
	enrollments EnrollmentStore,
	clock *SessionClock,
	log zerolog.Logger,
) *SubmissionGate {
	return &SubmissionGate{
		tx:          tx,
		exams:       exams,
		exercises:   exercises,
		testCases:   testCases,
		enrollments: enrollments,
		clock:       clock,
		tracer:      otel.Tracer("github.com/stemsi/olympiad-backend/internal/service/submission"),
		log:         log.With().Str("component", "submission_gate").Logger(),
	}
}

func validateSubmission(req *model.SubmitRequest) error {
	if req.ExerciseID <= 0 {
		return ErrMissingExercise
	}
	if req.Code == nil && req.Answer == nil {
		return ErrEmptySubmission
	}
	if req.Code != nil && utf8.RuneCountInString(*req.Code) > model.MaxCodeLength {
		return ErrCodeTooLong
	}
	if req.Answer != nil && utf8.RuneCountInString(*req.Answer) > model.MaxAnswerLength {
		return ErrAnswerTooLong
	}
	return nil
}

// Submit records a submission for the participant. Checks run in order:
// payload validation, exam state, enrollment existence, submission quota.
// The stored code and answer are overwritten and the counter incremented in
// one conditional write, so concurrent submissions cannot exceed the quota.
func (g *SubmissionGate) Submit(ctx context.Context, participantID int64, req model.SubmitRequest) (*model.SubmissionResult, error) {
	ctx, span := g.tracer.Start(ctx, "submission.submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("participant.id", participantID),
		attribute.Int64("exercise.id", req.ExerciseID),
	)

	result, err := g.submit(ctx, participantID, req)
	if err != nil {
		observability.Submissions().WithLabelValues(outcomeLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission rejected")
		return nil, err
	}

	outcome := "accepted"
	if result.Correct != nil {
		if *result.Correct {
			outcome = "correct"
		} else {
			outcome = "incorrect"
		}
	}
	observability.Submissions().WithLabelValues(outcome).Inc()
	span.SetStatus(codes.Ok, outcome)
	return result, nil
}

func (g *SubmissionGate) submit(ctx context.Context, participantID int64, req model.SubmitRequest) (*model.SubmissionResult, error) {
	if err := validateSubmission(&req); err != nil {
		return nil, err
	}

	x, err := g.exercises.GetByID(ctx, req.ExerciseID)
	if err != nil {
		return nil, notFound(err, ErrExerciseNotFound)
	}
	if x.CodeRequired && req.Code == nil {
		return nil, ErrCodeRequired
	}

	exam, err := g.exams.GetByID(ctx, x.ExamID)
	if err != nil {
		return nil, notFound(err, ErrExamNotFound)
	}

	now := g.clock.Now()
	if !IsOpen(exam, now) {
		return nil, stateError(g.clock.State(exam, nil, now))
	}
	examEnrollment, err := g.clock.ensureStarted(ctx, exam, participantID, now)
	if err != nil {
		return nil, err
	}
	if state := g.clock.State(exam, examEnrollment, now); state != model.ExamStateOpen {
		return nil, stateError(state)
	}

	var result *model.SubmissionResult
	err = g.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := g.enrollments.RecordSubmission(ctx, x.ID, participantID, req.Code, req.Answer, x.MaxSubmissions)
		if errors.Is(err, pgx.ErrNoRows) {
			return g.rejection(ctx, x, participantID)
		}
		if err != nil {
			return err
		}

		result = &model.SubmissionResult{
			Success:              true,
			RemainingSubmissions: max(0, x.MaxSubmissions-stored.SubmissionCount),
			StoredCode:           stored.Code,
			StoredAnswer:         stored.Answer,
			LiveFeedback:         x.LiveFeedback,
		}
		if x.UsesTestCase {
			result.Correct, err = g.grade(ctx, stored)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// rejection explains why the conditional write matched no row.
func (g *SubmissionGate) rejection(ctx context.Context, x *model.Exercise, participantID int64) error {
	current, err := g.enrollments.GetExerciseEnrollment(ctx, x.ID, participantID)
	if err != nil {
		return notFound(err, ErrEnrollmentNotFound)
	}
	if current.SubmissionCount >= x.MaxSubmissions {
		return ErrSubmissionLimit
	}
	return ErrSubmissionConflict
}

// grade compares the stored answer against the assigned test case.
// Returns nil when no test case has been assigned yet.
func (g *SubmissionGate) grade(ctx context.Context, stored *model.ExerciseEnrollment) (*bool, error) {
	if stored.TestCaseID == nil {
		g.log.Warn().
			Int64("exercise_id", stored.ExerciseID).
			Int64("participant_id", stored.ParticipantID).
			Msg("Submission on test case exercise without an assigned test case")
		return nil, nil
	}

	tc, err := g.testCases.GetByID(ctx, *stored.TestCaseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	answer := ""
	if stored.Answer != nil {
		answer = *stored.Answer
	}
	correct := grading.Matches(answer, tc.ExpectedAnswer)
	return &correct, nil
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrState):
		return "not_open"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_reached"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "error"
}
