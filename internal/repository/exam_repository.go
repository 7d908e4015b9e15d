package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

const examColumns = `e.id, e.name, e.description, e.starts_at, e.ends_at, e.duration_minutes,
	e.enforce_duration, e.sequential_only, e.referent_id, e.created_at`

// ExamRepository handles exam and committee data access.
type ExamRepository struct {
	base
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{base{pool: pool}}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt, &e.DurationMinutes,
		&e.EnforceDuration, &e.SequentialOnly, &e.ReferentID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func collectExams(rows pgx.Rows) ([]model.Exam, error) {
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.db(ctx).QueryRow(ctx,
		`INSERT INTO exams (name, description, starts_at, ends_at, duration_minutes,
		                    enforce_duration, sequential_only, referent_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.Name, e.Description, e.StartsAt, e.EndsAt, e.DurationMinutes,
		e.EnforceDuration, e.SequentialOnly, e.ReferentID,
	).Scan(&e.ID, &e.CreatedAt)
}

// Update modifies an exam's schedule and settings. The referent never changes.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE exams
		 SET name = $1, description = $2, starts_at = $3, ends_at = $4, duration_minutes = $5,
		     enforce_duration = $6, sequential_only = $7
		 WHERE id = $8`,
		e.Name, e.Description, e.StartsAt, e.EndsAt, e.DurationMinutes,
		e.EnforceDuration, e.SequentialOnly, e.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	return scanExam(r.db(ctx).QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id))
}

// LockByID retrieves an exam and locks its row until the surrounding transaction ends.
func (r *ExamRepository) LockByID(ctx context.Context, id int64) (*model.Exam, error) {
	return scanExam(r.db(ctx).QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams e WHERE e.id = $1 FOR UPDATE`, id))
}

// Delete removes an exam; exercises and enrollments cascade.
func (r *ExamRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListForOrganizer returns exams the user is referent of or sits on the committee of.
func (r *ExamRepository) ListForOrganizer(ctx context.Context, userID int64) ([]model.Exam, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams e
		 WHERE e.referent_id = $1
		    OR EXISTS (SELECT 1 FROM committee_members cm WHERE cm.exam_id = e.id AND cm.user_id = $1)
		 ORDER BY e.starts_at DESC NULLS LAST, e.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectExams(rows)
}

// ListForParticipant returns the exams a participant is enrolled in.
func (r *ExamRepository) ListForParticipant(ctx context.Context, participantID int64) ([]model.Exam, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams e
		 JOIN exam_enrollments ee ON ee.exam_id = e.id
		 WHERE ee.participant_id = $1
		 ORDER BY e.starts_at NULLS FIRST, e.id`, participantID)
	if err != nil {
		return nil, err
	}
	return collectExams(rows)
}

// AddCommitteeMember adds an organizer to the exam committee.
func (r *ExamRepository) AddCommitteeMember(ctx context.Context, examID, userID int64) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO committee_members (exam_id, user_id) VALUES ($1, $2)`, examID, userID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Capabilities reports how userID relates to the exam.
func (r *ExamRepository) Capabilities(ctx context.Context, examID, userID int64) ([]model.Capability, error) {
	var referent, committee, enrolled bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT
		   EXISTS (SELECT 1 FROM exams WHERE id = $1 AND referent_id = $2),
		   EXISTS (SELECT 1 FROM committee_members WHERE exam_id = $1 AND user_id = $2),
		   EXISTS (SELECT 1 FROM exam_enrollments WHERE exam_id = $1 AND participant_id = $2)`,
		examID, userID,
	).Scan(&referent, &committee, &enrolled)
	if err != nil {
		return nil, err
	}

	var caps []model.Capability
	if referent {
		caps = append(caps, model.CapabilityExamOrganizer)
	}
	if committee {
		caps = append(caps, model.CapabilityCommitteeMember)
	}
	if enrolled {
		caps = append(caps, model.CapabilityEnrolledParticipant)
	}
	return caps, nil
}
