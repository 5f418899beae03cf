package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

// SumForUser replays the user's ledger: credits minus deductions.
func (r *ledgerRepo) SumForUser(ctx context.Context, q pgutils.Querier, userID int64) (int64, error) {
	var sum int64

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'DEDUCT' THEN -amount ELSE amount END), 0)::BIGINT
		FROM ledger_entries
		WHERE user_id = $1
		  AND status = 'COMPLETED'
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}

	return sum, nil
}
