package escrows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

// MarkResolved only touches rows still in HOLD, so a resolved escrow can
// never be re-entered even by a caller that skipped the row lock.
func (r *escrowsRepo) MarkResolved(ctx context.Context, tx *sql.Tx, id int64, to escrows.Status, at time.Time) (escrows.Escrow, error) {
	var column string

	switch to {
	case escrows.StatusReleased:
		column = "released_at"
	case escrows.StatusRefunded:
		column = "refunded_at"
	default:
		return escrows.Escrow{}, fmt.Errorf("%w: cannot resolve to %q", escrows.ErrInvalidEscrow, to)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE escrows
		SET status = $2, `+column+` = $3
		WHERE id = $1
		  AND status = 'HOLD'
		RETURNING `+escrowColumns,
		id, string(to), at,
	)

	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escrows.Escrow{}, escrows.ErrNotHeld
		}

		return escrows.Escrow{}, fmt.Errorf("mark escrow %s: %w", to, pgutils.Classify(err))
	}

	return e, nil
}
