package service

import (
	"context"
	"math/rand/v2"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/allocation"
	"github.com/stemsi/olympiad-backend/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AllocationResult summarises one allocator pass over an exercise.
type AllocationResult struct {
	ExerciseID int64 `json:"exercise_id"`
	PoolSize   int   `json:"pool_size"`
	// Fresh counts the test cases nobody held before the pass.
	Fresh    int `json:"fresh"`
	Assigned int `json:"assigned"`
}

// ClearResult summarises a ClearAssignments call.
type ClearResult struct {
	ExerciseID       int64 `json:"exercise_id"`
	TestCasesDeleted int64 `json:"test_cases_deleted"`
	EnrollmentsWiped int64 `json:"enrollments_cleared"`
}

// AllocatorService assigns test cases to exercise enrollments.
// Every pass runs in one transaction holding the exercise row lock, so
// concurrent passes over the same exercise are serialized.
type AllocatorService struct {
	tx          Transactor
	exercises   ExerciseStore
	testCases   TestCaseStore
	enrollments EnrollmentStore
	tracer      trace.Tracer
	log         zerolog.Logger

	// rng returns the source for one pass. nil selects the global source.
	rng func() *rand.Rand
}

// NewAllocatorService creates a new AllocatorService.
func NewAllocatorService(
	tx Transactor,
	exercises ExerciseStore,
	testCases TestCaseStore,
	enrollments EnrollmentStore,
	log zerolog.Logger,
) *AllocatorService {
	return &AllocatorService{
		tx:          tx,
		exercises:   exercises,
		testCases:   testCases,
		enrollments: enrollments,
		tracer:      otel.Tracer("github.com/stemsi/olympiad-backend/internal/service/allocator"),
		log:         log.With().Str("component", "allocator_service").Logger(),
		rng:         func() *rand.Rand { return nil },
	}
}

// AllocateUnassigned gives a test case to every enrollment of the exercise
// that has none, favouring the least used test cases. Existing assignments
// are never touched.
func (s *AllocatorService) AllocateUnassigned(ctx context.Context, exerciseID int64) (*AllocationResult, error) {
	ctx, span := s.tracer.Start(ctx, "allocator.allocate_unassigned")
	defer span.End()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))

	var result *AllocationResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		x, err := s.exercises.LockByID(ctx, exerciseID)
		if err != nil {
			return notFound(err, ErrExerciseNotFound)
		}
		if !x.UsesTestCase {
			return ErrTestCasesDisabled
		}

		result, err = s.allocateLocked(ctx, exerciseID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		return nil, err
	}

	observability.Allocations().WithLabelValues("incremental").Add(float64(result.Assigned))
	span.SetAttributes(attribute.Int("allocation.assigned", result.Assigned))
	if result.Assigned > 0 {
		s.log.Info().
			Int64("exercise_id", exerciseID).
			Int("pool_size", result.PoolSize).
			Int("fresh", result.Fresh).
			Int("assigned", result.Assigned).
			Msg("Test cases allocated")
	}
	return result, nil
}

// allocateLocked expects the caller to hold the exercise row lock.
func (s *AllocatorService) allocateLocked(ctx context.Context, exerciseID int64) (*AllocationResult, error) {
	result := &AllocationResult{ExerciseID: exerciseID}

	pool, err := s.testCases.ListIDs(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	result.PoolSize = len(pool)
	if len(pool) == 0 {
		return result, nil
	}

	unassigned, err := s.enrollments.UnassignedIDs(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if len(unassigned) == 0 {
		return result, nil
	}

	assigned, err := s.enrollments.AssignedTestCaseIDs(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	fresh, _ := allocation.Partition(pool, assigned)
	result.Fresh = fresh.Cardinality()

	plan := allocation.PlanIncremental(pool, assigned, unassigned, s.rng())
	written, err := s.enrollments.AssignIfUnassigned(ctx, plan)
	if err != nil {
		return nil, err
	}
	if int(written) != len(plan) {
		return nil, ErrAllocationConflict
	}

	result.Assigned = len(plan)
	return result, nil
}

// RedistributeAll reassigns every enrollment of the exercise from a freshly
// shuffled pool, overwriting previous assignments.
func (s *AllocatorService) RedistributeAll(ctx context.Context, exerciseID int64) (*AllocationResult, error) {
	ctx, span := s.tracer.Start(ctx, "allocator.redistribute_all")
	defer span.End()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))

	result := &AllocationResult{ExerciseID: exerciseID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		x, err := s.exercises.LockByID(ctx, exerciseID)
		if err != nil {
			return notFound(err, ErrExerciseNotFound)
		}
		if !x.UsesTestCase {
			return ErrTestCasesDisabled
		}

		pool, err := s.testCases.ListIDs(ctx, exerciseID)
		if err != nil {
			return err
		}
		result.PoolSize = len(pool)
		if len(pool) == 0 {
			return nil
		}

		enrollments, err := s.enrollments.EnrollmentIDs(ctx, exerciseID)
		if err != nil {
			return err
		}

		plan := allocation.PlanRedistribution(pool, enrollments, s.rng())
		written, err := s.enrollments.OverwriteAssignments(ctx, plan)
		if err != nil {
			return err
		}
		if int(written) != len(plan) {
			return ErrAllocationConflict
		}
		result.Assigned = len(plan)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redistribution failed")
		return nil, err
	}

	observability.Allocations().WithLabelValues("redistribution").Add(float64(result.Assigned))
	s.log.Info().
		Int64("exercise_id", exerciseID).
		Int("pool_size", result.PoolSize).
		Int("assigned", result.Assigned).
		Msg("Test cases redistributed")
	return result, nil
}

// ClearAssignments deletes the exercise's test cases, nulls every enrollment
// reference and turns test case usage off.
func (s *AllocatorService) ClearAssignments(ctx context.Context, exerciseID int64) (*ClearResult, error) {
	ctx, span := s.tracer.Start(ctx, "allocator.clear_assignments")
	defer span.End()
	span.SetAttributes(attribute.Int64("exercise.id", exerciseID))

	result := &ClearResult{ExerciseID: exerciseID}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.exercises.LockByID(ctx, exerciseID); err != nil {
			return notFound(err, ErrExerciseNotFound)
		}

		var err error
		if result.EnrollmentsWiped, err = s.enrollments.ClearAssignments(ctx, exerciseID); err != nil {
			return err
		}
		if result.TestCasesDeleted, err = s.testCases.DeleteByExercise(ctx, exerciseID); err != nil {
			return err
		}
		return s.exercises.SetUsesTestCase(ctx, exerciseID, false)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clear failed")
		return nil, err
	}

	s.log.Info().
		Int64("exercise_id", exerciseID).
		Int64("test_cases_deleted", result.TestCasesDeleted).
		Int64("enrollments_cleared", result.EnrollmentsWiped).
		Msg("Test cases cleared")
	return result, nil
}
