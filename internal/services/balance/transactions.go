package balance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/pagination"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

// ListTransactions pages through the user's ledger, newest first. cursor is
// the NextCursor of the previous page, or "" for the first one.
func (s *BalanceService) ListTransactions(ctx context.Context, userID int64, cursor string, limit int) (TransactionPage, error) {
	beforeID, err := pagination.Decode(cursor)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w: %w", domain.ErrValidation, err)
	}

	err = s.users.Exists(ctx, s.db, userID)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	limit = pagination.ClampLimit(limit)

	entries, err := s.ledger.ListForUser(ctx, userID, ledger.Page{BeforeID: beforeID, Limit: limit + 1})
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	entries, next := pagination.ComputePage(entries, limit, func(e ledger.Entry) int64 { return e.ID })

	return TransactionPage{Entries: entries, NextCursor: next}, nil
}

// VerifyBalance replays the user's ledger and compares it with the cached
// balance. On drift it returns the reconciliation along with
// ErrBalanceMismatch.
func (s *BalanceService) VerifyBalance(ctx context.Context, userID int64) (Reconciliation, error) {
	rec := Reconciliation{UserID: userID}

	opts := append([]pgutils.TxOption{pgutils.WithIsolation(sql.LevelRepeatableRead)}, s.txOpts...)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		rec.Cached, err = s.users.LockAndGetBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		rec.Ledger, err = s.ledger.SumForUser(ctx, tx, userID)
		return err
	}, opts...)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("verify balance: %w", err)
	}

	if !rec.Consistent() {
		return rec, fmt.Errorf("user %d: cached %d, ledger %d: %w",
			userID, rec.Cached, rec.Ledger, ErrBalanceMismatch)
	}

	return rec, nil
}
