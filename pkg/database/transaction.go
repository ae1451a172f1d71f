package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type TxContextKey string

const txKey = TxContextKey("tx-context-key")

type Tx interface {
	Querier
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts sqlx transactions
type Beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transaction wraps sqlx.Tx. Only the handle that began the transaction
// commits or rolls it back; handles joined from the context are no-ops.
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
}

type joinedTx struct {
	*Transaction
}

func (joinedTx) Commit(context.Context) error   { return nil }
func (joinedTx) Rollback(context.Context) error { return nil }

// GetTx joins the transaction already open on ctx or begins a new one
func GetTx(ctx context.Context, logger ectologger.Logger, db Beginner, opts *sql.TxOptions) (context.Context, Tx, error) {
	if open, ok := ctx.Value(txKey).(*Transaction); ok && open.IsOpen() {
		return ctx, joinedTx{open}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := &Transaction{Tx: tx, logger: logger}
	return context.WithValue(ctx, txKey, newTx), newTx, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.closed
}

// Rollback aborts the transaction. Calling it after Commit is a no-op, so it
// can always be deferred.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction: %w", err)
	}
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}
	return nil
}
