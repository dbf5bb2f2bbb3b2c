package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Store owns the connection pool and hands out transactions.  Repositories
// built from the same Store join whatever transaction is carried by the
// context passed to them.
type Store struct {
	db *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction.  Nested calls reuse the outer
// transaction.  The transaction is committed when fn returns nil and
// rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// isDuplicate reports a MySQL unique key violation (error 1062).
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// forUpdate appends a row lock clause when ctx carries a transaction.
// Outside a transaction the lock would be released immediately, so the
// plain query is used.
func forUpdate(ctx context.Context, q string) string {
	if txFromContext(ctx) != nil {
		return q + " FOR UPDATE"
	}
	return q
}
