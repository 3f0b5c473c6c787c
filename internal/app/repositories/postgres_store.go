package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/thesisflow/internal/db"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrLockOutsideTx is returned by Lock when no transaction is open.
var ErrLockOutsideTx = errors.New("advisory lock requires an open transaction")

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	db   *db.PostgresDB
	q    querier
	inTx bool
}

// NewPostgresStore creates a Store backed by pg.
func NewPostgresStore(pg *db.PostgresDB) *PostgresStore {
	return &PostgresStore{db: pg, q: pg.Pool}
}

func (s *PostgresStore) DefenseRequests() DefenseRequestRepository {
	return NewDefenseRequestRepository(s.q)
}

func (s *PostgresStore) Verifications() VerificationRepository {
	return NewVerificationRepository(s.q)
}

func (s *PostgresStore) Finance() FinanceRepository {
	return NewFinanceRepository(s.q)
}

func (s *PostgresStore) Faculty() FacultyDirectory {
	return NewFacultyRepository(s.q)
}

// WithinTx runs fn inside a serializable transaction, replaying it on
// serialization failures.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithSerializableTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &PostgresStore{db: s.db, q: tx, inTx: true})
	})
}

// Lock takes a transaction-scoped advisory lock on key.
func (s *PostgresStore) Lock(ctx context.Context, key string) error {
	if !s.inTx {
		return ErrLockOutsideTx
	}
	if _, err := s.q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	return nil
}
