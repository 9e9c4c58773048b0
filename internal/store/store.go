// Package store implements persistence for stashes and everything inside
// them. Functions take the connection explicitly so that callers can run
// them inside a transaction. Lookups by id return nil, nil when the row does
// not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// errDenied rolls back a transaction whose eligibility check failed. It never
// leaves this package.
var errDenied = errors.New("denied")

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		p := recover()
		switch {
		case p != nil:
			_ = tx.Rollback()
			panic(p)
		case err != nil:
			_ = tx.Rollback()
		default:
			if err = tx.Commit(); err != nil {
				err = fmt.Errorf("committing transaction: %w", err)
			}
		}
	}()

	return fn(tx)
}

// insertID runs an INSERT and returns the id of the new row.
func insertID(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func exec(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, q.Rebind(query), args...)
}

// getOne scans a single row into a T, returning nil when there is none.
func getOne[T any](ctx context.Context, q sqlx.ExtContext, query string, args ...any) (*T, error) {
	var v T
	err := sqlx.GetContext(ctx, q, &v, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func selectAll[T any](ctx context.Context, q sqlx.ExtContext, query string, args ...any) ([]T, error) {
	var v []T
	if err := sqlx.SelectContext(ctx, q, &v, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return v, nil
}

func exists(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(query), args...); err != nil {
		return false, err
	}
	return n > 0, nil
}
