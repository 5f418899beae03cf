package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

// Append validates and inserts e inside the caller's transaction and returns
// the stored row.
func (r *ledgerRepo) Append(ctx context.Context, tx *sql.Tx, e ledger.Entry) (ledger.Entry, error) {
	err := e.Validate()
	if err != nil {
		return ledger.Entry{}, err
	}

	if e.Status == "" {
		e.Status = ledger.StatusCompleted
	}

	var (
		relatedType sql.NullString
		relatedID   sql.NullInt64
	)

	if e.Related != nil {
		relatedType = sql.NullString{String: e.Related.Type, Valid: true}
		relatedID = sql.NullInt64{Int64: e.Related.ID, Valid: true}
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (
			user_id, type, amount, balance_before, balance_after,
			related_type, related_id, description, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+entryColumns,
		e.UserID, string(e.Type), e.Amount, e.BalanceBefore, e.BalanceAfter,
		relatedType, relatedID, e.Description, string(e.Status),
	)

	stored, err := scanEntry(row)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("insert ledger entry: %w", pgutils.Classify(err))
	}

	return stored, nil
}
