package escrows

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

// Create inserts a HOLD escrow. The unique key on service_request_id turns a
// second escrow for the same request into ErrDuplicateEscrow.
func (r *escrowsRepo) Create(ctx context.Context, tx *sql.Tx, n escrows.NewEscrow) (escrows.Escrow, error) {
	err := n.Validate()
	if err != nil {
		return escrows.Escrow{}, err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO escrows (service_request_id, requester_id, provider_id, amount, status)
		VALUES ($1, $2, $3, $4, 'HOLD')
		RETURNING `+escrowColumns,
		n.ServiceRequestID, n.RequesterID, n.ProviderID, n.Amount,
	)

	e, err := scanEscrow(row)
	if err != nil {
		if pgutils.IsUniqueViolation(err, requestUniqueConstraint) {
			return escrows.Escrow{}, escrows.ErrDuplicateEscrow
		}

		return escrows.Escrow{}, fmt.Errorf("insert escrow: %w", pgutils.Classify(err))
	}

	return e, nil
}
