package escrows

import (
	"context"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

func (r *escrowsRepo) ListByStatus(ctx context.Context, status escrows.Status, limit int) ([]escrows.Escrow, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", escrows.ErrInvalidEscrow, status)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+escrowColumns+`
		FROM escrows
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []escrows.Escrow

	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow: %w", err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate escrows: %w", err)
	}

	return out, nil
}
