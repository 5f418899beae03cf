package requests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/repos/requests"
)

func (r *requestsRepo) Transition(ctx context.Context, tx *sql.Tx, id int64, from, to requests.Status) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE service_requests
		SET status = $3, updated_at = now()
		WHERE id = $1
		  AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("transition service request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s -> %s", requests.ErrStatusChanged, from, to)
	}

	return nil
}
