package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrRetriesExhausted = errors.New("transaction retries exhausted")

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	// MaxAttempts counts the first try; values below 1 behave as 1.
	MaxAttempts int
	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration
	// Retryable decides which errors start another attempt. Nil means IsRetryable.
	Retryable func(error) bool
	OnRetry   func(attempt int, err error)
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
		MaxAttempts:    1,
	}
}

func SerializableTxOptions(maxAttempts int, backoff time.Duration) TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxAttempts:    maxAttempts,
		Backoff:        backoff,
	}
}

func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry runs fn in a fresh transaction per attempt. Errors from fn or from
// commit that opts classifies as retryable roll back and start over.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	return Retry(ctx, opts, func(ctx context.Context) error {
		return WithTransaction(ctx, db, opts, fn)
	})
}

// Retry is the transaction-agnostic loop behind WithRetry.
func Retry(ctx context.Context, opts TxOptions, fn func(context.Context) error) error {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryable := opts.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, attempt, err)
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		timer := time.NewTimer(opts.Backoff * time.Duration(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
