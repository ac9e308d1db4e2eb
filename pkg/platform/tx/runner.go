package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Runner runs a unit of work. SQL-backed services get a real transaction;
// in-memory wiring gets a pass-through so service code stays identical.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner wraps fn in a database transaction and stores it in the context
// so participating stores join the same transaction via From.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PassthroughRunner executes fn directly. In-memory stores serialize with
// their own mutexes, so there is no transaction to open.
type PassthroughRunner struct{}

func NewPassthroughRunner() *PassthroughRunner {
	return &PassthroughRunner{}
}

func (r *PassthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
