package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

const exerciseColumns = `x.id, x.exam_id, x.ordinal, x.title, x.statement, x.statement_code,
	x.code_required, x.max_submissions, x.uses_test_case, x.live_feedback,
	x.instance_separator, x.answer_separator, x.author_id,
	(SELECT COUNT(*) FROM test_cases tc WHERE tc.exercise_id = x.id)`

// ExerciseRepository handles exercise data access.
type ExerciseRepository struct {
	base
}

// NewExerciseRepository creates a new ExerciseRepository.
func NewExerciseRepository(pool *pgxpool.Pool) *ExerciseRepository {
	return &ExerciseRepository{base{pool: pool}}
}

func scanExercise(row pgx.Row) (*model.Exercise, error) {
	x := &model.Exercise{}
	err := row.Scan(&x.ID, &x.ExamID, &x.Ordinal, &x.Title, &x.Statement, &x.StatementCode,
		&x.CodeRequired, &x.MaxSubmissions, &x.UsesTestCase, &x.LiveFeedback,
		&x.InstanceSeparator, &x.AnswerSeparator, &x.AuthorID, &x.TestCaseCount)
	if err != nil {
		return nil, err
	}
	return x, nil
}

// Create inserts an exercise at the next ordinal of its exam.
// The caller must hold the exam row lock so concurrent creations cannot race
// for the same ordinal; the (exam_id, ordinal) unique key backs this up.
func (r *ExerciseRepository) Create(ctx context.Context, x *model.Exercise) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO exercises (exam_id, ordinal, title, statement, statement_code, code_required,
		                        max_submissions, uses_test_case, live_feedback,
		                        instance_separator, answer_separator, author_id)
		 SELECT $1, COALESCE(MAX(ordinal), 0) + 1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		 FROM exercises WHERE exam_id = $1
		 RETURNING id, ordinal`,
		x.ExamID, x.Title, x.Statement, x.StatementCode, x.CodeRequired,
		x.MaxSubmissions, x.UsesTestCase, x.LiveFeedback,
		x.InstanceSeparator, x.AnswerSeparator, x.AuthorID,
	).Scan(&x.ID, &x.Ordinal)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an exercise. Exam and ordinal are immutable.
func (r *ExerciseRepository) Update(ctx context.Context, x *model.Exercise) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE exercises
		 SET title = $1, statement = $2, statement_code = $3, code_required = $4,
		     max_submissions = $5, uses_test_case = $6, live_feedback = $7,
		     instance_separator = $8, answer_separator = $9
		 WHERE id = $10`,
		x.Title, x.Statement, x.StatementCode, x.CodeRequired,
		x.MaxSubmissions, x.UsesTestCase, x.LiveFeedback,
		x.InstanceSeparator, x.AnswerSeparator, x.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetUsesTestCase flips the test case flag of an exercise.
func (r *ExerciseRepository) SetUsesTestCase(ctx context.Context, id int64, uses bool) error {
	_, err := r.db(ctx).Exec(ctx, `UPDATE exercises SET uses_test_case = $1 WHERE id = $2`, uses, id)
	return err
}

// GetByID retrieves an exercise by ID.
func (r *ExerciseRepository) GetByID(ctx context.Context, id int64) (*model.Exercise, error) {
	return scanExercise(r.db(ctx).QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises x WHERE x.id = $1`, id))
}

// LockByID retrieves an exercise and locks its row until the surrounding
// transaction ends. Allocation passes over one exercise serialize on it.
func (r *ExerciseRepository) LockByID(ctx context.Context, id int64) (*model.Exercise, error) {
	return scanExercise(r.db(ctx).QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises x WHERE x.id = $1 FOR UPDATE OF x`, id))
}

// ListByExam returns the exercises of an exam ordered by ordinal.
func (r *ExerciseRepository) ListByExam(ctx context.Context, examID int64) ([]model.Exercise, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises x WHERE x.exam_id = $1 ORDER BY x.ordinal`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []model.Exercise
	for rows.Next() {
		x, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *x)
	}
	return exercises, rows.Err()
}

// Delete removes an exercise with its test cases and enrollments.
func (r *ExerciseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
