// internal/database/db.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "github-ai-attribution/internal/errors"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Store is a Querier that can also run a function inside one transaction.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(Querier) error) error
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Queries: New(pool), pool: pool}
}

// Connect opens and pings a pool for dbURL.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return custom_errors.E(custom_errors.PersistenceFailure, "database: begin", err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := fn(s.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return custom_errors.E(custom_errors.PersistenceFailure, "database: commit", err)
	}
	return nil
}

// Classify wraps a driver error with the matching kind: missing rows become
// NotFound, unique violations Conflict, anything else PersistenceFailure.
// Errors that already carry a kind pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var kerr *custom_errors.Error
	if errors.As(err, &kerr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return custom_errors.E(custom_errors.NotFound, op, err)
	}
	if IsUniqueViolation(err) {
		return custom_errors.E(custom_errors.Conflict, op, err)
	}
	return custom_errors.E(custom_errors.PersistenceFailure, op, err)
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || custom_errors.IsKind(err, custom_errors.NotFound)
}
