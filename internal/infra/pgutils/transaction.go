package pgutils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/config"
)

type txOptions struct {
	lockTimeout      time.Duration
	statementTimeout time.Duration
	isolation        sql.IsolationLevel
}

type TxOption func(*txOptions)

// WithLockTimeout makes every lock wait inside the transaction give up after d.
func WithLockTimeout(d time.Duration) TxOption {
	return func(o *txOptions) { o.lockTimeout = d }
}

// WithStatementTimeout aborts any single statement running longer than d.
func WithStatementTimeout(d time.Duration) TxOption {
	return func(o *txOptions) { o.statementTimeout = d }
}

func WithIsolation(level sql.IsolationLevel) TxOption {
	return func(o *txOptions) { o.isolation = level }
}

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back.
// Driver errors are classified (see Classify) so callers can match them
// against the domain sentinels.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error, opts ...TxOption) error {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: o.isolation})
	if err != nil {
		return fmt.Errorf("begin tx: %w", Classify(err))
	}

	err = applyTimeouts(ctx, tx, o)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set timeouts: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, Classify(err))
		}
		return fmt.Errorf("fn: %w", Classify(err))
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", Classify(err))
	}

	return nil
}

// SET LOCAL does not accept bind parameters, so the values are rendered as
// integer milliseconds.
func applyTimeouts(ctx context.Context, tx *sql.Tx, o txOptions) error {
	if o.lockTimeout > 0 {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`SET LOCAL lock_timeout = %d`, o.lockTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("lock_timeout: %w", err)
		}
	}

	if o.statementTimeout > 0 {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`SET LOCAL statement_timeout = %d`, o.statementTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("statement_timeout: %w", err)
		}
	}

	return nil
}

// LockOptions turns the configured timeouts into options for WithTx.
func LockOptions(cfg config.LockConfig) []TxOption {
	return []TxOption{
		WithLockTimeout(cfg.LockTimeout),
		WithStatementTimeout(cfg.StatementTimeout),
	}
}
