package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/thesisflow/internal/config"
	"github.com/yigit/thesisflow/internal/pkg/dberrors"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// PostgresDB database connection structure
type PostgresDB struct {
	Pool *pgxpool.Pool
	// TxRetries bounds how often a serializable transaction is replayed.
	TxRetries int
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.GetPostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)

	maxLifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection max lifetime: %w", err)
	}
	poolConfig.MaxConnLifetime = maxLifetime

	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if err := conn.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Unhealthy connection detected")
			return false
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	retries := cfg.Database.TxRetries
	if retries < 1 {
		retries = 1
	}
	return &PostgresDB{Pool: pool, TxRetries: retries}, nil
}

// Close closing method
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs fn in a read-committed transaction.
func (db *PostgresDB) WithTransaction(ctx context.Context, fn TransactionFn) error {
	return db.runTx(ctx, pgx.TxOptions{}, fn)
}

// WithSerializableTransaction runs fn under SERIALIZABLE isolation and replays it
// when Postgres aborts it with a serialization failure or deadlock. fn must be
// safe to run more than once.
func (db *PostgresDB) WithSerializableTransaction(ctx context.Context, fn TransactionFn) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	var err error
	for attempt := 1; attempt <= db.TxRetries; attempt++ {
		err = db.runTx(ctx, opts, fn)
		if err == nil || !dberrors.IsRetryable(err) {
			return err
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Serializable transaction aborted, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*20) * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", db.TxRetries, err)
}

func (db *PostgresDB) runTx(ctx context.Context, opts pgx.TxOptions, fn TransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
