package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
)

func (r *requestsRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (requests.ServiceRequest, error) {
	sr, err := scanRequest(tx.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE id = $1
		FOR NO KEY UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return requests.ServiceRequest{}, requests.ErrRequestNotFound
		}

		return requests.ServiceRequest{}, fmt.Errorf("lock service request: %w", pgutils.Classify(err))
	}

	return sr, nil
}
