package service

import (
	"context"
	"time"

	"github.com/stemsi/olympiad-backend/internal/model"
)

// The interfaces below are satisfied by the repository package. Services
// depend on them so they can run against in-memory stores in tests.

// Transactor runs fn inside a single transaction. Nested calls join the
// outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ExamStore interface {
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id int64) (*model.Exam, error)
	LockByID(ctx context.Context, id int64) (*model.Exam, error)
	Delete(ctx context.Context, id int64) error
	ListForOrganizer(ctx context.Context, userID int64) ([]model.Exam, error)
	ListForParticipant(ctx context.Context, participantID int64) ([]model.Exam, error)
	AddCommitteeMember(ctx context.Context, examID, userID int64) error
	Capabilities(ctx context.Context, examID, userID int64) ([]model.Capability, error)
}

type ExerciseStore interface {
	Create(ctx context.Context, x *model.Exercise) error
	Update(ctx context.Context, x *model.Exercise) error
	SetUsesTestCase(ctx context.Context, id int64, uses bool) error
	GetByID(ctx context.Context, id int64) (*model.Exercise, error)
	LockByID(ctx context.Context, id int64) (*model.Exercise, error)
	ListByExam(ctx context.Context, examID int64) ([]model.Exercise, error)
	Delete(ctx context.Context, id int64) error
}

type TestCaseStore interface {
	ReplaceForExercise(ctx context.Context, exerciseID int64, cases []model.TestCase) error
	ListIDs(ctx context.Context, exerciseID int64) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*model.TestCase, error)
	DeleteByExercise(ctx context.Context, exerciseID int64) (int64, error)
}

type EnrollmentStore interface {
	InsertExamEnrollments(ctx context.Context, examID int64, participantIDs []int64) (int64, error)
	InsertExerciseEnrollments(ctx context.Context, exerciseIDs, participantIDs []int64) (int64, error)
	BackfillExercise(ctx context.Context, examID, exerciseID int64) (int64, error)
	GetExamEnrollment(ctx context.Context, examID, participantID int64) (*model.ExamEnrollment, error)
	StartSession(ctx context.Context, examID, participantID int64, at time.Time) (*model.ExamEnrollment, error)
	GetExerciseEnrollment(ctx context.Context, exerciseID, participantID int64) (*model.ExerciseEnrollment, error)
	ListExerciseEnrollments(ctx context.Context, examID, participantID int64) ([]model.ExerciseEnrollment, error)
	AssignedTestCaseIDs(ctx context.Context, exerciseID int64) ([]int64, error)
	UnassignedIDs(ctx context.Context, exerciseID int64) ([]int64, error)
	EnrollmentIDs(ctx context.Context, exerciseID int64) ([]int64, error)
	AssignIfUnassigned(ctx context.Context, plan []model.TestCaseAssignment) (int64, error)
	OverwriteAssignments(ctx context.Context, plan []model.TestCaseAssignment) (int64, error)
	ClearAssignments(ctx context.Context, exerciseID int64) (int64, error)
	RecordSubmission(ctx context.Context, exerciseID, participantID int64, code, answer *string, maxSubmissions int) (*model.ExerciseEnrollment, error)
}

type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*model.Group, error)
	Create(ctx context.Context, g *model.Group) error
	AddMembers(ctx context.Context, groupID int64, participantIDs []int64) error
	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	LinkExam(ctx context.Context, groupID, examID int64) (bool, error)
	ListByCreator(ctx context.Context, organizerID int64) ([]model.Group, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	CreateParticipants(ctx context.Context, organizerID int64, usernames, hashes []string) ([]int64, error)
	ExistingParticipantIDs(ctx context.Context, ids []int64) ([]int64, error)
}

type CounterStore interface {
	Reserve(ctx context.Context, ownerID int64, n int) (int64, error)
}
