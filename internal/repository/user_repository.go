package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// UserRepository handles organizer and participant account data access.
type UserRepository struct {
	base
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{base{pool: pool}}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(r.db(ctx).QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`, id))
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.db(ctx).QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`, username))
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// CreateParticipants inserts participant accounts in one statement and records
// the organizer that created them. IDs are returned in input order.
func (r *UserRepository) CreateParticipants(ctx context.Context, organizerID int64, usernames, hashes []string) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`INSERT INTO users (username, password_hash, role)
		 SELECT u.username, u.password_hash, 'PARTICIPANT'
		 FROM unnest($1::text[], $2::text[]) AS u(username, password_hash)
		 RETURNING id, username`,
		usernames, hashes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]int64, len(usernames))
	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		byName[username] = id
	}
	if err := rows.Err(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	ids := make([]int64, len(usernames))
	for i, name := range usernames {
		ids[i] = byName[name]
	}

	_, err = r.db(ctx).CopyFrom(ctx,
		pgx.Identifier{"users_created_by"},
		[]string{"user_id", "organizer_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]any, error) {
			return []any{ids[i], organizerID}, nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingParticipantIDs returns the subset of ids that are participant accounts.
func (r *UserRepository) ExistingParticipantIDs(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM users WHERE id = ANY($1::bigint[]) AND role = 'PARTICIPANT' ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
