package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// TestCaseRepository handles test case data access.
type TestCaseRepository struct {
	base
}

// NewTestCaseRepository creates a new TestCaseRepository.
func NewTestCaseRepository(pool *pgxpool.Pool) *TestCaseRepository {
	return &TestCaseRepository{base{pool: pool}}
}

// ReplaceForExercise deletes the exercise's test cases and bulk inserts cases.
// Enrollment references to deleted cases are nulled by the foreign key.
func (r *TestCaseRepository) ReplaceForExercise(ctx context.Context, exerciseID int64, cases []model.TestCase) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM test_cases WHERE exercise_id = $1`, exerciseID); err != nil {
		return err
	}
	if len(cases) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(cases))
	for _, tc := range cases {
		rows = append(rows, []any{exerciseID, tc.Instance, tc.ExpectedAnswer})
	}
	_, err := r.db(ctx).CopyFrom(ctx,
		pgx.Identifier{"test_cases"},
		[]string{"exercise_id", "instance", "expected_answer"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListIDs returns the ids of an exercise's test cases in ascending order.
func (r *TestCaseRepository) ListIDs(ctx context.Context, exerciseID int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM test_cases WHERE exercise_id = $1 ORDER BY id`, exerciseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// GetByID retrieves a test case by ID.
func (r *TestCaseRepository) GetByID(ctx context.Context, id int64) (*model.TestCase, error) {
	tc := &model.TestCase{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, exercise_id, instance, expected_answer FROM test_cases WHERE id = $1`, id,
	).Scan(&tc.ID, &tc.ExerciseID, &tc.Instance, &tc.ExpectedAnswer)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// DeleteByExercise removes every test case of an exercise.
func (r *TestCaseRepository) DeleteByExercise(ctx context.Context, exerciseID int64) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM test_cases WHERE exercise_id = $1`, exerciseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
