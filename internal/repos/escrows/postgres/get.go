package escrows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

func (r *escrowsRepo) Get(ctx context.Context, q pgutils.Querier, id int64) (escrows.Escrow, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE id = $1
	`, id)

	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escrows.Escrow{}, escrows.ErrEscrowNotFound
		}

		return escrows.Escrow{}, fmt.Errorf("get escrow: %w", err)
	}

	return e, nil
}

func (r *escrowsRepo) FindByRequest(ctx context.Context, q pgutils.Querier, requestID int64) (escrows.Escrow, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE service_request_id = $1
	`, requestID)

	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escrows.Escrow{}, escrows.ErrEscrowNotFound
		}

		return escrows.Escrow{}, fmt.Errorf("find escrow by request: %w", err)
	}

	return e, nil
}
