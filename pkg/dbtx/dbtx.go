// Package dbtx carries a *sql.Tx through context so repository methods can
// transparently participate in a caller-managed transaction without an
// explicit transaction parameter on every signature.
package dbtx

import (
	"context"
	"database/sql"
)

type txContextKey struct{}

// Executor is satisfied by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the subset of *sql.DB the transaction helpers need, isolated so
// callers can substitute a sqlmock-backed *sql.DB in tests.
type DB interface {
	Begin() (*sql.Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ReadCommitted is the isolation level the Transfer Executor opens its
// locked debit/credit transaction at.
const ReadCommitted = sql.LevelReadCommitted

// ContextWithTx returns a context carrying tx. A nil tx is not stored: ctx
// is returned unchanged and TxFromContext reports no transaction present.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}

	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the *sql.Tx stored in ctx, or nil if none.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction in ctx if present, otherwise db. db is
// typically a *sql.DB or a dbresolver.DB (primary/replica router); both
// satisfy Executor.
func GetExecutor(ctx context.Context, db Executor) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return db
}

// RunInTransaction begins a transaction on db, runs fn with the transaction
// attached to ctx, and commits on success or rolls back on error or panic.
// A panic inside fn is rolled back and re-raised to the caller.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	return runWithTx(ctx, tx, fn)
}

// RunInTransactionWithOptions is RunInTransaction with an explicit
// isolation level instead of the driver's default, honoring ctx when the
// transaction begins (the Transfer Executor opens its locked debit/credit
// transaction at ReadCommitted).
func RunInTransactionWithOptions(ctx context.Context, db DB, isolation sql.IsolationLevel, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	return runWithTx(ctx, tx, fn)
}

func runWithTx(ctx context.Context, tx *sql.Tx, fn func(ctx context.Context) error) (err error) {
	txCtx := ContextWithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}
