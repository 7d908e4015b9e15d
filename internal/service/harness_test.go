package service

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db  *memDB
	now time.Time

	exams       memExams
	exercises   memExercises
	testCases   memTestCases
	enrollments memEnrollments

	clock      *SessionClock
	allocator  *AllocatorService
	enrollment *EnrollmentService
	registry   *RegistryService
	gate       *SubmissionGate
	authorizer *Authorizer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	h := &harness{
		db:          db,
		now:         time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		exams:       memExams{db},
		exercises:   memExercises{db},
		testCases:   memTestCases{db},
		enrollments: memEnrollments{db},
	}
	log := zerolog.Nop()

	h.clock = NewSessionClock(h.exams, h.exercises, h.testCases, h.enrollments, nil, log)
	h.clock.now = func() time.Time { return h.now }

	h.allocator = NewAllocatorService(db, h.exercises, h.testCases, h.enrollments, log)
	var pass uint64
	h.allocator.rng = func() *rand.Rand {
		pass++
		return rand.New(rand.NewPCG(42, pass))
	}

	h.enrollment = NewEnrollmentService(db, h.exams, h.exercises, h.enrollments, memGroups{db}, memUsers{db}, h.allocator, log)
	h.registry = NewRegistryService(db, h.exams, h.exercises, h.testCases, h.enrollments, memUsers{db}, h.allocator, 0, log)
	h.gate = NewSubmissionGate(db, h.exams, h.exercises, h.testCases, h.enrollments, h.clock, log)
	h.authorizer = NewAuthorizer(h.exams, h.exercises, memGroups{db})
	return h
}

func at(hour, minute int) *time.Time {
	t := time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T { return &v }

// algo1 creates the exam used throughout: 09:00 to 18:00 with an enforced
// 60 minute personal window.
func (h *harness) algo1(t *testing.T) *model.Exam {
	t.Helper()
	referent := h.db.addUser("referent", model.RoleOrganizer)
	exam, err := h.registry.CreateExam(t.Context(), referent, model.ExamRequest{
		Name:            "Algo1",
		StartsAt:        at(9, 0),
		EndsAt:          at(18, 0),
		DurationMinutes: ptr(60),
		EnforceDuration: true,
	})
	require.NoError(t, err)
	return exam
}

// exercise adds an exercise with the given test case pool to the exam.
func (h *harness) exercise(t *testing.T, exam *model.Exam, instances, answers string) *model.Exercise {
	t.Helper()
	req := model.ExerciseRequest{Title: "E1", Statement: "Compute it."}
	if instances != "" {
		req.UsesTestCase = true
		req.Instances = &instances
		req.Answers = &answers
	}
	x, err := h.registry.CreateExercise(t.Context(), exam.ID, exam.ReferentID, req)
	require.NoError(t, err)
	return x
}
