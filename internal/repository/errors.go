package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/olympiad-backend/internal/database"
)

// Repository errors.
var (
	ErrDuplicate = errors.New("duplicate record")
)

// base gives every repository access to the transaction bound to ctx.
type base struct {
	pool *pgxpool.Pool
}

func (b base) db(ctx context.Context) database.DBTX {
	return database.Conn(ctx, b.pool)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
