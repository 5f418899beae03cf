package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/ledger"
)

func (r *ledgerRepo) CountByRelated(ctx context.Context, q pgutils.Querier, typ ledger.EntryType, ref ledger.Reference) (int, error) {
	var n int

	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE type = $1
		  AND related_type = $2
		  AND related_id = $3
	`, string(typ), ref.Type, ref.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}

	return n, nil
}
