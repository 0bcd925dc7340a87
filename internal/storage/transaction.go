package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc is a function that runs within a transaction.
type TxFunc func(*sql.Tx) error

// WithTransaction executes the given function within a database transaction.
// It automatically commits on success or rolls back on error.
// If the function panics, the transaction is rolled back and the panic is re-raised.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = &StoreError{Op: "commit", Err: commitErr}
			}
		}
	}()

	err = fn(tx)
	return err
}

// ExecTx runs one statement inside tx, attaching the statement to any error.
func ExecTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "exec", SQL: query, Args: args, Err: err}
	}
	return res, nil
}
