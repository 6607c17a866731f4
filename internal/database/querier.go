package database

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the stores use. pgx.Tx and the
// pgxmock pool satisfy it too.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger is implemented by the pool and used by readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SQL is the statement builder for PostgreSQL ($1 placeholders).
var SQL = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
