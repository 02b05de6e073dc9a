package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StorageError wraps a transactional storage fault. Callers may retry the
// whole operation: the failed transaction left no partial state behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("platform/db: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsSerializationFailure reports whether err is a PostgreSQL serialization
// failure or deadlock, i.e. a transient conflict between concurrent
// serializable transactions.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// WithTx executes fn inside a serializable transaction. Begin/commit faults
// and serialization conflicts surface as *StorageError; errors returned by fn
// pass through untouched so domain errors keep their type.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return &StorageError{Op: "begin tx", Err: err}
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		if IsSerializationFailure(err) {
			return &StorageError{Op: "tx conflict", Err: err}
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &StorageError{Op: "commit tx", Err: err}
	}

	return nil
}
