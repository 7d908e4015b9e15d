package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

const exerciseEnrollmentColumns = `id, participant_id, exercise_id, test_case_id, code, answer, submission_count`

// EnrollmentRepository handles exam and exercise enrollment data access.
type EnrollmentRepository struct {
	base
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{base{pool: pool}}
}

func scanExerciseEnrollment(row pgx.Row) (*model.ExerciseEnrollment, error) {
	e := &model.ExerciseEnrollment{}
	err := row.Scan(&e.ID, &e.ParticipantID, &e.ExerciseID, &e.TestCaseID, &e.Code, &e.Answer, &e.SubmissionCount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// InsertExamEnrollments enrolls participants into an exam, skipping existing
// pairs. Returns the number of rows actually created.
func (r *EnrollmentRepository) InsertExamEnrollments(ctx context.Context, examID int64, participantIDs []int64) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO exam_enrollments (participant_id, exam_id)
		 SELECT p, $1 FROM unnest($2::bigint[]) AS p
		 ON CONFLICT (participant_id, exam_id) DO NOTHING`,
		examID, participantIDs,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertExerciseEnrollments enrolls every participant into every exercise,
// skipping existing pairs. Returns the number of rows actually created.
func (r *EnrollmentRepository) InsertExerciseEnrollments(ctx context.Context, exerciseIDs, participantIDs []int64) (int64, error) {
	if len(exerciseIDs) == 0 || len(participantIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO exercise_enrollments (participant_id, exercise_id)
		 SELECT p, x FROM unnest($1::bigint[]) AS p CROSS JOIN unnest($2::bigint[]) AS x
		 ON CONFLICT (participant_id, exercise_id) DO NOTHING`,
		participantIDs, exerciseIDs,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetExamEnrollment retrieves a participant's enrollment in an exam.
func (r *EnrollmentRepository) GetExamEnrollment(ctx context.Context, examID, participantID int64) (*model.ExamEnrollment, error) {
	e := &model.ExamEnrollment{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, participant_id, exam_id, session_start
		 FROM exam_enrollments WHERE exam_id = $1 AND participant_id = $2`, examID, participantID,
	).Scan(&e.ID, &e.ParticipantID, &e.ExamID, &e.SessionStart)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// StartSession sets the session start to at unless it is already set, and
// returns the stored enrollment. Concurrent first touches keep the earliest write.
func (r *EnrollmentRepository) StartSession(ctx context.Context, examID, participantID int64, at time.Time) (*model.ExamEnrollment, error) {
	e := &model.ExamEnrollment{}
	err := r.db(ctx).QueryRow(ctx,
		`UPDATE exam_enrollments
		 SET session_start = COALESCE(session_start, $3)
		 WHERE exam_id = $1 AND participant_id = $2
		 RETURNING id, participant_id, exam_id, session_start`,
		examID, participantID, at,
	).Scan(&e.ID, &e.ParticipantID, &e.ExamID, &e.SessionStart)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetExerciseEnrollment retrieves a participant's enrollment in an exercise.
func (r *EnrollmentRepository) GetExerciseEnrollment(ctx context.Context, exerciseID, participantID int64) (*model.ExerciseEnrollment, error) {
	return scanExerciseEnrollment(r.db(ctx).QueryRow(ctx,
		`SELECT `+exerciseEnrollmentColumns+`
		 FROM exercise_enrollments WHERE exercise_id = $1 AND participant_id = $2`,
		exerciseID, participantID))
}

// ListExerciseEnrollments returns a participant's enrollments for the exercises of an exam.
func (r *EnrollmentRepository) ListExerciseEnrollments(ctx context.Context, examID, participantID int64) ([]model.ExerciseEnrollment, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT ee.id, ee.participant_id, ee.exercise_id, ee.test_case_id, ee.code, ee.answer, ee.submission_count
		 FROM exercise_enrollments ee
		 JOIN exercises x ON x.id = ee.exercise_id
		 WHERE x.exam_id = $1 AND ee.participant_id = $2
		 ORDER BY x.ordinal`, examID, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExerciseEnrollment
	for rows.Next() {
		e, err := scanExerciseEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// AssignedTestCaseIDs returns one entry per enrollment holding a test case,
// so an id appears as many times as it is used.
func (r *EnrollmentRepository) AssignedTestCaseIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT test_case_id FROM exercise_enrollments
		 WHERE exercise_id = $1 AND test_case_id IS NOT NULL`, exerciseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// UnassignedIDs returns the enrollments of an exercise that hold no test case.
func (r *EnrollmentRepository) UnassignedIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM exercise_enrollments
		 WHERE exercise_id = $1 AND test_case_id IS NULL ORDER BY id`, exerciseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// EnrollmentIDs returns every enrollment of an exercise.
func (r *EnrollmentRepository) EnrollmentIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM exercise_enrollments WHERE exercise_id = $1 ORDER BY id`, exerciseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// AssignIfUnassigned writes the plan, skipping enrollments that already hold
// a test case. Returns the number of enrollments written.
func (r *EnrollmentRepository) AssignIfUnassigned(ctx context.Context, plan []model.TestCaseAssignment) (int64, error) {
	return r.assign(ctx, plan, `AND ee.test_case_id IS NULL`)
}

// OverwriteAssignments writes the plan regardless of previous assignments.
func (r *EnrollmentRepository) OverwriteAssignments(ctx context.Context, plan []model.TestCaseAssignment) (int64, error) {
	return r.assign(ctx, plan, ``)
}

func (r *EnrollmentRepository) assign(ctx context.Context, plan []model.TestCaseAssignment, guard string) (int64, error) {
	if len(plan) == 0 {
		return 0, nil
	}

	enrollmentIDs := make([]int64, len(plan))
	testCaseIDs := make([]int64, len(plan))
	for i, a := range plan {
		enrollmentIDs[i] = a.EnrollmentID
		testCaseIDs[i] = a.TestCaseID
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE exercise_enrollments AS ee
		 SET test_case_id = a.test_case_id
		 FROM unnest($1::bigint[], $2::bigint[]) AS a(enrollment_id, test_case_id)
		 WHERE ee.id = a.enrollment_id `+guard,
		enrollmentIDs, testCaseIDs,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClearAssignments nulls every test case reference of an exercise.
func (r *EnrollmentRepository) ClearAssignments(ctx context.Context, exerciseID int64) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE exercise_enrollments SET test_case_id = NULL
		 WHERE exercise_id = $1 AND test_case_id IS NOT NULL`, exerciseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordSubmission overwrites the stored code and answer and increments the
// submission counter, only while the counter is below maxSubmissions.
// Returns pgx.ErrNoRows when the enrollment is missing or the quota is spent.
func (r *EnrollmentRepository) RecordSubmission(ctx context.Context, exerciseID, participantID int64, code, answer *string, maxSubmissions int) (*model.ExerciseEnrollment, error) {
	return scanExerciseEnrollment(r.db(ctx).QueryRow(ctx,
		`UPDATE exercise_enrollments
		 SET code = $3, answer = $4, submission_count = submission_count + 1
		 WHERE exercise_id = $1 AND participant_id = $2 AND submission_count < $5
		 RETURNING `+exerciseEnrollmentColumns,
		exerciseID, participantID, code, answer, maxSubmissions))
}

// BackfillExercise enrolls every participant of the exam into a newly created exercise.
func (r *EnrollmentRepository) BackfillExercise(ctx context.Context, examID, exerciseID int64) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO exercise_enrollments (participant_id, exercise_id)
		 SELECT participant_id, $2 FROM exam_enrollments WHERE exam_id = $1
		 ON CONFLICT (participant_id, exercise_id) DO NOTHING`,
		examID, exerciseID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
