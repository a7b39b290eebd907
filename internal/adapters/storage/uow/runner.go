package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clubledger/internal/adapters/storage"
	"clubledger/internal/domain/ledger"
)

// DefaultMaxAttempts bounds how often a conflicting unit is re-run.
const DefaultMaxAttempts = 5

// Runner executes functions inside a database transaction and re-runs them
// from scratch when SQLite reports a lock conflict.
type Runner struct {
	db          storage.SQLDB
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(context.Context, time.Duration) error
	isConflict  func(error) bool
}

// NewRunner creates a Runner. maxAttempts <= 0 selects DefaultMaxAttempts.
func NewRunner(db storage.SQLDB, maxAttempts int) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Runner{
		db:          db,
		maxAttempts: maxAttempts,
		baseDelay:   10 * time.Millisecond,
		maxDelay:    250 * time.Millisecond,
		sleep:       sleepCtx,
		isConflict:  storage.IsConflict,
	}
}

// RunInTx runs fn in a fresh transaction and commits it.
// PRE: fn performs all its reads and writes through the given Tx
// POST: on nil, every write of the final attempt is committed; otherwise none are.
// Lock conflicts are retried up to the attempt limit and then reported as
// *ledger.ConflictError. Any other error from fn is returned unchanged.
func (r *Runner) RunInTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !r.isConflict(err) {
			return err
		}
		lastErr = err
		slog.Warn("tx_conflict_retry", "attempt", attempt, "max_attempts", r.maxAttempts, "error", err)
		if attempt == r.maxAttempts {
			break
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			return err
		}
	}
	return &ledger.ConflictError{Attempts: r.maxAttempts, Err: lastErr}
}

func (r *Runner) runOnce(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newSQLTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// backoff doubles from baseDelay per attempt, capped at maxDelay.
func (r *Runner) backoff(attempt int) time.Duration {
	d := r.baseDelay << (attempt - 1)
	if d > r.maxDelay || d <= 0 {
		return r.maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
