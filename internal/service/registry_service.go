package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stemsi/olympiad-backend/internal/repository"
)

// RegistryService manages exams, their committee and their exercises.
type RegistryService struct {
	tx          Transactor
	exams       ExamStore
	exercises   ExerciseStore
	testCases   TestCaseStore
	enrollments EnrollmentStore
	users       UserStore
	allocator   *AllocatorService
	log         zerolog.Logger

	defaultMaxSubmissions int
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(
	tx Transactor,
	exams ExamStore,
	exercises ExerciseStore,
	testCases TestCaseStore,
	enrollments EnrollmentStore,
	users UserStore,
	allocator *AllocatorService,
	defaultMaxSubmissions int,
	log zerolog.Logger,
) *RegistryService {
	if defaultMaxSubmissions <= 0 {
		defaultMaxSubmissions = model.DefaultMaxSubmissions
	}
	return &RegistryService{
		tx:                    tx,
		exams:                 exams,
		exercises:             exercises,
		testCases:             testCases,
		enrollments:           enrollments,
		users:                 users,
		allocator:             allocator,
		defaultMaxSubmissions: defaultMaxSubmissions,
		log:                   log.With().Str("component", "registry_service").Logger(),
	}
}

func validateExam(req *model.ExamRequest) error {
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return ErrInvalidWindow
	}
	if req.EnforceDuration && (req.DurationMinutes == nil || *req.DurationMinutes <= 0) {
		return ErrDurationRequired
	}
	return nil
}

func applyExam(e *model.Exam, req *model.ExamRequest) {
	e.Name = strings.TrimSpace(req.Name)
	e.Description = req.Description
	e.StartsAt = req.StartsAt
	e.EndsAt = req.EndsAt
	e.DurationMinutes = req.DurationMinutes
	e.EnforceDuration = req.EnforceDuration
	e.SequentialOnly = req.SequentialOnly
}

// CreateExam creates an exam with the caller as referent.
func (s *RegistryService) CreateExam(ctx context.Context, referentID int64, req model.ExamRequest) (*model.Exam, error) {
	if err := validateExam(&req); err != nil {
		return nil, err
	}

	exam := &model.Exam{ReferentID: referentID}
	applyExam(exam, &req)
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, err
	}

	s.log.Info().Int64("exam_id", exam.ID).Int64("referent_id", referentID).Msg("Exam created")
	return exam, nil
}

// UpdateExam replaces an exam's schedule and settings.
func (s *RegistryService) UpdateExam(ctx context.Context, examID int64, req model.ExamRequest) (*model.Exam, error) {
	if err := validateExam(&req); err != nil {
		return nil, err
	}

	var exam *model.Exam
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		exam, err = s.exams.LockByID(ctx, examID)
		if err != nil {
			return notFound(err, ErrExamNotFound)
		}
		applyExam(exam, &req)
		return notFound(s.exams.Update(ctx, exam), ErrExamNotFound)
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// GetExam retrieves an exam.
func (s *RegistryService) GetExam(ctx context.Context, examID int64) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err, ErrExamNotFound)
	}
	return exam, nil
}

// ListExamsForOrganizer lists exams the organizer is referent of or sits on
// the committee of.
func (s *RegistryService) ListExamsForOrganizer(ctx context.Context, organizerID int64) ([]model.Exam, error) {
	exams, err := s.exams.ListForOrganizer(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// ListExamsForParticipant lists the exams a participant is enrolled in.
func (s *RegistryService) ListExamsForParticipant(ctx context.Context, participantID int64) ([]model.Exam, error) {
	exams, err := s.exams.ListForParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// DeleteExam removes an exam with its exercises and enrollments.
func (s *RegistryService) DeleteExam(ctx context.Context, examID int64) error {
	if err := s.exams.Delete(ctx, examID); err != nil {
		return notFound(err, ErrExamNotFound)
	}
	s.log.Info().Int64("exam_id", examID).Msg("Exam deleted")
	return nil
}

// AddCommitteeMember adds an organizer to the exam committee. Only the
// referent may do so, and never for themselves.
func (s *RegistryService) AddCommitteeMember(ctx context.Context, examID, actorID int64, username string) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return notFound(err, ErrExamNotFound)
	}
	if exam.ReferentID != actorID {
		return ErrForbidden
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if user.ID == actorID {
		return ErrCommitteeSelf
	}
	if user.Role != model.RoleOrganizer {
		return ErrNotAnOrganizer
	}

	if err := s.exams.AddCommitteeMember(ctx, examID, user.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyCommitteeMember
		}
		return err
	}

	s.log.Info().Int64("exam_id", examID).Int64("user_id", user.ID).Msg("Committee member added")
	return nil
}

// ParseTestCases pairs instances with expected answers positionally. Both
// texts are split on their separator, or on newlines when it is empty. Pairs
// where either side is blank are dropped.
func ParseTestCases(instances, answers, instanceSeparator, answerSeparator string) []model.TestCase {
	split := func(text, sep string) []string {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		if sep == "" {
			sep = "\n"
		}
		return strings.Split(text, sep)
	}

	ins := split(instances, instanceSeparator)
	outs := split(answers, answerSeparator)

	cases := make([]model.TestCase, 0, min(len(ins), len(outs)))
	for i := range min(len(ins), len(outs)) {
		if strings.TrimSpace(ins[i]) == "" || strings.TrimSpace(outs[i]) == "" {
			continue
		}
		cases = append(cases, model.TestCase{Instance: ins[i], ExpectedAnswer: outs[i]})
	}
	return cases
}

func (s *RegistryService) applyExercise(x *model.Exercise, req *model.ExerciseRequest) {
	x.Title = strings.TrimSpace(req.Title)
	x.Statement = req.Statement
	x.StatementCode = req.StatementCode
	x.CodeRequired = req.CodeRequired
	x.UsesTestCase = req.UsesTestCase
	x.LiveFeedback = req.LiveFeedback
	x.InstanceSeparator = req.InstanceSeparator
	x.AnswerSeparator = req.AnswerSeparator
	switch {
	case req.MaxSubmissions != nil:
		x.MaxSubmissions = *req.MaxSubmissions
	case x.MaxSubmissions == 0:
		x.MaxSubmissions = s.defaultMaxSubmissions
	}
}

// hasTestCases reports whether the request carries a test case pool.
func hasTestCases(req *model.ExerciseRequest) bool {
	return req.UsesTestCase && req.Instances != nil && req.Answers != nil
}

// CreateExercise appends an exercise to the exam, enrolls the exam's current
// participants into it and allocates its test cases.
func (s *RegistryService) CreateExercise(ctx context.Context, examID, authorID int64, req model.ExerciseRequest) (*model.Exercise, error) {
	x := &model.Exercise{ExamID: examID, AuthorID: authorID}
	s.applyExercise(x, &req)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.exams.LockByID(ctx, examID); err != nil {
			return notFound(err, ErrExamNotFound)
		}
		if err := s.exercises.Create(ctx, x); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return err
		}

		if hasTestCases(&req) {
			cases := ParseTestCases(*req.Instances, *req.Answers, x.InstanceSeparator, x.AnswerSeparator)
			if err := s.testCases.ReplaceForExercise(ctx, x.ID, cases); err != nil {
				return err
			}
			x.TestCaseCount = len(cases)
		}

		if _, err := s.enrollments.BackfillExercise(ctx, examID, x.ID); err != nil {
			return err
		}
		if x.UsesTestCase {
			if _, err := s.allocator.AllocateUnassigned(ctx, x.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("exam_id", examID).
		Int64("exercise_id", x.ID).
		Int("ordinal", x.Ordinal).
		Int("test_cases", x.TestCaseCount).
		Msg("Exercise created")
	return x, nil
}

// UpdateExercise modifies an exercise. The ordinal never changes. Turning
// test cases off clears them; supplying a new pool replaces the old one and
// redistributes it over every enrollment.
func (s *RegistryService) UpdateExercise(ctx context.Context, exerciseID int64, req model.ExerciseRequest) (*model.Exercise, error) {
	var x *model.Exercise
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		x, err = s.exercises.LockByID(ctx, exerciseID)
		if err != nil {
			return notFound(err, ErrExerciseNotFound)
		}
		wasUsing := x.UsesTestCase
		s.applyExercise(x, &req)

		if err := notFound(s.exercises.Update(ctx, x), ErrExerciseNotFound); err != nil {
			return err
		}

		switch {
		case wasUsing && !x.UsesTestCase:
			if _, err := s.allocator.ClearAssignments(ctx, x.ID); err != nil {
				return err
			}
			x.TestCaseCount = 0
		case hasTestCases(&req):
			cases := ParseTestCases(*req.Instances, *req.Answers, x.InstanceSeparator, x.AnswerSeparator)
			if err := s.testCases.ReplaceForExercise(ctx, x.ID, cases); err != nil {
				return err
			}
			x.TestCaseCount = len(cases)
			if _, err := s.allocator.RedistributeAll(ctx, x.ID); err != nil {
				return err
			}
		case x.UsesTestCase:
			if _, err := s.allocator.AllocateUnassigned(ctx, x.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("exercise_id", exerciseID).Msg("Exercise updated")
	return x, nil
}

// GetExercise retrieves an exercise.
func (s *RegistryService) GetExercise(ctx context.Context, exerciseID int64) (*model.Exercise, error) {
	x, err := s.exercises.GetByID(ctx, exerciseID)
	if err != nil {
		return nil, notFound(err, ErrExerciseNotFound)
	}
	return x, nil
}

// ListExercises lists the exercises of an exam by ordinal.
func (s *RegistryService) ListExercises(ctx context.Context, examID int64) ([]model.Exercise, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, notFound(err, ErrExamNotFound)
	}
	exercises, err := s.exercises.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []model.Exercise{}
	}
	return exercises, nil
}

// DeleteExercise removes an exercise. Ordinals of the remaining exercises
// are kept as they are.
func (s *RegistryService) DeleteExercise(ctx context.Context, exerciseID int64) error {
	if err := s.exercises.Delete(ctx, exerciseID); err != nil {
		return notFound(err, ErrExerciseNotFound)
	}
	s.log.Info().Int64("exercise_id", exerciseID).Msg("Exercise deleted")
	return nil
}
