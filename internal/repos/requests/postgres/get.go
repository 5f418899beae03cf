package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
	"github.com/fastprodman/coinescrow/internal/repos/requests"
)

func (r *requestsRepo) Get(ctx context.Context, q pgutils.Querier, id int64) (requests.ServiceRequest, error) {
	sr, err := scanRequest(q.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return requests.ServiceRequest{}, requests.ErrRequestNotFound
		}

		return requests.ServiceRequest{}, fmt.Errorf("get service request: %w", err)
	}

	return sr, nil
}
