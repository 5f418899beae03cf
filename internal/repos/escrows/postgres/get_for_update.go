package escrows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

func (r *escrowsRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (escrows.Escrow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE id = $1
		FOR UPDATE
	`, id)

	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escrows.Escrow{}, escrows.ErrEscrowNotFound
		}

		return escrows.Escrow{}, fmt.Errorf("lock escrow: %w", pgutils.Classify(err))
	}

	return e, nil
}
