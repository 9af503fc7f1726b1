package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// MaxTxAttempts bounds retries of a transaction that failed with a
// serialization failure or deadlock.
const MaxTxAttempts = 3

type txKey struct{}

// Conn returns the transaction bound to ctx by WithTx, or fallback when the
// call is not part of a transaction.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// WithTx runs fn inside a single transaction. Repositories called with the
// ctx passed to fn pick the transaction up through Conn. Any error returned by
// fn rolls the transaction back. Nested calls join the outer transaction.
func WithTx(ctx context.Context, b Beginner, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= MaxTxAttempts; attempt++ {
		err = runTx(ctx, b, fn)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, b Beginner, fn func(ctx context.Context) error) (err error) {
	tx, err := b.Begin(ctx)
	if err != nil {
		return apperr.StorageFailure(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return Classify(err, "transaction", nil)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// TxManager binds WithTx to a pool so services can depend on a small
// interface instead of the pool itself.
type TxManager struct {
	db Beginner
}

func NewTxManager(b Beginner) *TxManager {
	return &TxManager{db: b}
}

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, m.db, fn)
}
