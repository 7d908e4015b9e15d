package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EnrollmentResult reports what an enrollment call created.
type EnrollmentResult struct {
	ExamID                     int64 `json:"exam_id"`
	Participants               int   `json:"participants"`
	ExamEnrollmentsCreated     int64 `json:"exam_enrollments_created"`
	ExerciseEnrollmentsCreated int64 `json:"exercise_enrollments_created"`
	TestCasesAssigned          int   `json:"test_cases_assigned"`
}

// GroupEnrollmentResult reports the outcome of enrolling a group.
type GroupEnrollmentResult struct {
	EnrollmentResult
	GroupID     int64 `json:"group_id"`
	LinkCreated bool  `json:"link_created"`
}

// EnrollmentService enrolls participants into exams and their exercises.
type EnrollmentService struct {
	tx          Transactor
	exams       ExamStore
	exercises   ExerciseStore
	enrollments EnrollmentStore
	groups      GroupStore
	users       UserStore
	allocator   *AllocatorService
	tracer      trace.Tracer
	log         zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(
	tx Transactor,
	exams ExamStore,
	exercises ExerciseStore,
	enrollments EnrollmentStore,
	groups GroupStore,
	users UserStore,
	allocator *AllocatorService,
	log zerolog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		tx:          tx,
		exams:       exams,
		exercises:   exercises,
		enrollments: enrollments,
		groups:      groups,
		users:       users,
		allocator:   allocator,
		tracer:      otel.Tracer("github.com/stemsi/olympiad-backend/internal/service/enrollment"),
		log:         log.With().Str("component", "enrollment_service").Logger(),
	}
}

// EnrollParticipants enrolls every participant into the exam and all of its
// exercises, then hands a test case to each new enrollment of test case
// exercises. Existing enrollments are left untouched. The whole batch is one
// transaction.
func (s *EnrollmentService) EnrollParticipants(ctx context.Context, examID int64, participantIDs []int64) (*EnrollmentResult, error) {
	ctx, span := s.tracer.Start(ctx, "enrollment.enroll_participants")
	defer span.End()
	span.SetAttributes(attribute.Int64("exam.id", examID), attribute.Int("participants.requested", len(participantIDs)))

	ids := mapset.NewThreadUnsafeSet(participantIDs...).ToSlice()
	slices.Sort(ids)

	result := &EnrollmentResult{ExamID: examID, Participants: len(ids)}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The exam lock orders enrollment against exercise creation.
		if _, err := s.exams.LockByID(ctx, examID); err != nil {
			return notFound(err, ErrExamNotFound)
		}
		if len(ids) == 0 {
			return nil
		}

		known, err := s.users.ExistingParticipantIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(known) != len(ids) {
			missing := mapset.NewThreadUnsafeSet(ids...).Difference(mapset.NewThreadUnsafeSet(known...)).ToSlice()
			slices.Sort(missing)
			return fmt.Errorf("%w: %v", ErrUnknownParticipants, missing)
		}

		if result.ExamEnrollmentsCreated, err = s.enrollments.InsertExamEnrollments(ctx, examID, ids); err != nil {
			return fmt.Errorf("insert exam enrollments: %w", err)
		}

		exercises, err := s.exercises.ListByExam(ctx, examID)
		if err != nil {
			return err
		}
		exerciseIDs := make([]int64, len(exercises))
		for i, x := range exercises {
			exerciseIDs[i] = x.ID
		}
		if result.ExerciseEnrollmentsCreated, err = s.enrollments.InsertExerciseEnrollments(ctx, exerciseIDs, ids); err != nil {
			return fmt.Errorf("insert exercise enrollments: %w", err)
		}

		// Lock exercises in id order so concurrent batches cannot deadlock.
		slices.SortFunc(exercises, func(a, b model.Exercise) int { return cmp.Compare(a.ID, b.ID) })
		for _, x := range exercises {
			if !x.UsesTestCase {
				continue
			}
			allocated, err := s.allocator.AllocateUnassigned(ctx, x.ID)
			if err != nil {
				return fmt.Errorf("allocate exercise %d: %w", x.ID, err)
			}
			result.TestCasesAssigned += allocated.Assigned
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrollment failed")
		return nil, err
	}

	observability.Enrollments().WithLabelValues("exam").Add(float64(result.ExamEnrollmentsCreated))
	observability.Enrollments().WithLabelValues("exercise").Add(float64(result.ExerciseEnrollmentsCreated))
	s.log.Info().
		Int64("exam_id", examID).
		Int("participants", result.Participants).
		Int64("exam_enrollments_created", result.ExamEnrollmentsCreated).
		Int64("exercise_enrollments_created", result.ExerciseEnrollmentsCreated).
		Int("test_cases_assigned", result.TestCasesAssigned).
		Msg("Participants enrolled")
	return result, nil
}

// EnrollGroup links the group to the exam and enrolls its current members.
// Calling it again after the group grew enrolls only the new members.
func (s *EnrollmentService) EnrollGroup(ctx context.Context, examID, groupID int64) (*GroupEnrollmentResult, error) {
	result := &GroupEnrollmentResult{GroupID: groupID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.exams.LockByID(ctx, examID); err != nil {
			return notFound(err, ErrExamNotFound)
		}
		if _, err := s.groups.GetByID(ctx, groupID); err != nil {
			return notFound(err, ErrGroupNotFound)
		}

		var err error
		if result.LinkCreated, err = s.groups.LinkExam(ctx, groupID, examID); err != nil {
			return err
		}

		members, err := s.groups.MemberIDs(ctx, groupID)
		if err != nil {
			return err
		}

		enrolled, err := s.EnrollParticipants(ctx, examID, members)
		if err != nil {
			return err
		}
		result.EnrollmentResult = *enrolled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
