package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// GroupRepository handles participant group data access.
type GroupRepository struct {
	base
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{base{pool: pool}}
}

// GetByID retrieves a group with its member count.
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	g := &model.Group{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at,
		        (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		 FROM groups g WHERE g.id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.MemberCount)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a new group.
func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	return r.db(ctx).QueryRow(ctx,
		`INSERT INTO groups (name, created_by) VALUES ($1, $2) RETURNING id, created_at`,
		g.Name, g.CreatedBy,
	).Scan(&g.ID, &g.CreatedAt)
}

// AddMembers bulk inserts group memberships with the COPY protocol.
func (r *GroupRepository) AddMembers(ctx context.Context, groupID int64, participantIDs []int64) error {
	if len(participantIDs) == 0 {
		return nil
	}
	_, err := r.db(ctx).CopyFrom(ctx,
		pgx.Identifier{"group_members"},
		[]string{"group_id", "participant_id"},
		pgx.CopyFromSlice(len(participantIDs), func(i int) ([]any, error) {
			return []any{groupID, participantIDs[i]}, nil
		}),
	)
	return err
}

// MemberIDs returns the participants of a group.
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT participant_id FROM group_members WHERE group_id = $1 ORDER BY participant_id`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// LinkExam records that a group was enrolled into an exam.
// Reports false when the link already existed.
func (r *GroupRepository) LinkExam(ctx context.Context, groupID, examID int64) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO group_exams (group_id, exam_id) VALUES ($1, $2)
		 ON CONFLICT (group_id, exam_id) DO NOTHING`, groupID, examID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByCreator returns the groups an organizer created, newest first.
func (r *GroupRepository) ListByCreator(ctx context.Context, organizerID int64) ([]model.Group, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at,
		        (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		 FROM groups g WHERE g.created_by = $1
		 ORDER BY g.created_at DESC, g.id DESC`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt, &g.MemberCount); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
