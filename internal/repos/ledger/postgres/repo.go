package ledger

import (
	"database/sql"

	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

const entryColumns = `id, user_id, type, amount, balance_before, balance_after,
	related_type, related_id, description, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (ledger.Entry, error) {
	var (
		e           ledger.Entry
		relatedType sql.NullString
		relatedID   sql.NullInt64
	)

	err := s.Scan(
		&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceBefore, &e.BalanceAfter,
		&relatedType, &relatedID, &e.Description, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return ledger.Entry{}, err
	}

	if relatedType.Valid && relatedID.Valid {
		e.Related = &ledger.Reference{Type: relatedType.String, ID: relatedID.Int64}
	}

	return e, nil
}
