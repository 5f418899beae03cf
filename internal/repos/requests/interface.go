// Package requests is the ServiceRequest collaborator: status reads, an
// exclusive row lock and guarded status transitions.
package requests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

var (
	ErrRequestNotFound = fmt.Errorf("%w: service request", domain.ErrNotFound)
	ErrStatusChanged   = fmt.Errorf("%w: service request status changed", domain.ErrInvalidState)
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

type ServiceRequest struct {
	ID          int64
	RequesterID int64
	Title       string
	Price       int64
	Status      Status
}

type Requests interface {
	Get(ctx context.Context, q pgutils.Querier, id int64) (ServiceRequest, error)
	// LockForUpdate locks the request row until tx ends.
	LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (ServiceRequest, error)
	// Transition moves the request from one status to another and fails with
	// ErrStatusChanged if it is no longer in from.
	Transition(ctx context.Context, tx *sql.Tx, id int64, from, to Status) error
}
