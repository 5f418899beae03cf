// Package escrows defines the per-request holding record for deducted coins.
package escrows

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

var (
	ErrDuplicateEscrow = fmt.Errorf("%w: escrow already exists for service request", domain.ErrConflict)
	ErrEscrowNotFound  = fmt.Errorf("%w: escrow", domain.ErrNotFound)
	ErrNotHeld         = fmt.Errorf("%w: escrow is not on hold", domain.ErrInvalidState)
	ErrInvalidEscrow   = fmt.Errorf("%w: invalid escrow", domain.ErrValidation)
)

type Status string

const (
	StatusHold     Status = "HOLD"
	StatusReleased Status = "RELEASED"
	StatusRefunded Status = "REFUNDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusHold, StatusReleased, StatusRefunded:
		return true
	}

	return false
}

type Escrow struct {
	ID               int64      `json:"id"`
	ServiceRequestID int64      `json:"serviceRequestId"`
	RequesterID      int64      `json:"requesterId"`
	ProviderID       int64      `json:"providerId"`
	Amount           int64      `json:"amount"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	ReleasedAt       *time.Time `json:"releasedAt,omitempty"`
	RefundedAt       *time.Time `json:"refundedAt,omitempty"`
}

// NewEscrow holds the fields fixed at creation.
type NewEscrow struct {
	ServiceRequestID int64
	RequesterID      int64
	ProviderID       int64
	Amount           int64
}

func (n NewEscrow) Validate() error {
	switch {
	case n.ServiceRequestID <= 0 || n.RequesterID <= 0 || n.ProviderID <= 0:
		return fmt.Errorf("%w: ids must be positive", ErrInvalidEscrow)
	case n.RequesterID == n.ProviderID:
		return fmt.Errorf("%w: requester and provider must differ", ErrInvalidEscrow)
	case n.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidEscrow, n.Amount)
	}

	return nil
}

// Escrows stores at most one escrow per service request. Status only moves
// HOLD -> RELEASED or HOLD -> REFUNDED.
type Escrows interface {
	Create(ctx context.Context, tx *sql.Tx, n NewEscrow) (Escrow, error)
	// GetForUpdate locks the escrow row until tx ends.
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (Escrow, error)
	Get(ctx context.Context, q pgutils.Querier, id int64) (Escrow, error)
	FindByRequest(ctx context.Context, q pgutils.Querier, requestID int64) (Escrow, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Escrow, error)
	// MarkResolved moves a HOLD escrow to RELEASED or REFUNDED, stamping at.
	MarkResolved(ctx context.Context, tx *sql.Tx, id int64, to Status, at time.Time) (Escrow, error)
}
