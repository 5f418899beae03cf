package escrows

import (
	"database/sql"

	"github.com/fastprodman/coinescrow/internal/repos/escrows"
)

var _ escrows.Escrows = (*escrowsRepo)(nil)

type escrowsRepo struct{ db *sql.DB }

func New(db *sql.DB) *escrowsRepo {
	return &escrowsRepo{db: db}
}

const (
	escrowColumns = `id, service_request_id, requester_id, provider_id, amount,
		status, created_at, released_at, refunded_at`

	requestUniqueConstraint = "escrows_service_request_id_key"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanEscrow(s scanner) (escrows.Escrow, error) {
	var (
		e          escrows.Escrow
		releasedAt sql.NullTime
		refundedAt sql.NullTime
	)

	err := s.Scan(
		&e.ID, &e.ServiceRequestID, &e.RequesterID, &e.ProviderID, &e.Amount,
		&e.Status, &e.CreatedAt, &releasedAt, &refundedAt,
	)
	if err != nil {
		return escrows.Escrow{}, err
	}

	if releasedAt.Valid {
		e.ReleasedAt = &releasedAt.Time
	}
	if refundedAt.Valid {
		e.RefundedAt = &refundedAt.Time
	}

	return e, nil
}
