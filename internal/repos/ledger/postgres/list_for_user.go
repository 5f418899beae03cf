package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

// ListForUser returns up to page.Limit entries, newest first.
func (r *ledgerRepo) ListForUser(ctx context.Context, userID int64, page ledger.Page) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE user_id = $1
		  AND ($2::BIGINT = 0 OR id < $2::BIGINT)
		ORDER BY id DESC
		LIMIT $3
	`, userID, page.BeforeID, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]ledger.Entry, 0, page.Limit)

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		entries = append(entries, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}
