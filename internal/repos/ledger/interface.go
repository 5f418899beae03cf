// Package ledger defines the append-only record of balance-affecting events.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/fastprodman/coinescrow/internal/infra/pgutils"
)

var ErrInvalidEntry = fmt.Errorf("%w: invalid ledger entry", domain.ErrValidation)

type EntryType string

const (
	TypeCharge EntryType = "CHARGE"
	TypeDeduct EntryType = "DEDUCT"
	TypePayout EntryType = "PAYOUT"
	TypeRefund EntryType = "REFUND"
)

type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
	StatusFailed    EntryStatus = "FAILED"
	StatusCancelled EntryStatus = "CANCELLED"
)

// RelatedServiceRequest tags entries that move coins for a service request.
const RelatedServiceRequest = "service_request"

// Reference points an entry at the entity that caused it.
type Reference struct {
	Type string
	ID   int64
}

type Entry struct {
	ID            int64
	UserID        int64
	Type          EntryType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Related       *Reference
	Description   string
	Status        EntryStatus
	CreatedAt     time.Time
}

// Page selects entries older than BeforeID (0 means from the newest).
type Page struct {
	BeforeID int64
	Limit    int
}

// Ledger has no update or delete: corrections are new entries.
type Ledger interface {
	Append(ctx context.Context, tx *sql.Tx, e Entry) (Entry, error)
	ListForUser(ctx context.Context, userID int64, page Page) ([]Entry, error)
	SumForUser(ctx context.Context, q pgutils.Querier, userID int64) (int64, error)
	CountByRelated(ctx context.Context, q pgutils.Querier, typ EntryType, ref Reference) (int, error)
}

// Signed returns amount with the sign the entry type applies to a balance.
func Signed(amount int64, typ EntryType) int64 {
	if typ == TypeDeduct {
		return -amount
	}

	return amount
}

func (t EntryType) Valid() bool {
	switch t {
	case TypeCharge, TypeDeduct, TypePayout, TypeRefund:
		return true
	}

	return false
}

func (s EntryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}

	return false
}

// Validate checks the entry's arithmetic before it is written.
func (e Entry) Validate() error {
	switch {
	case e.UserID <= 0:
		return fmt.Errorf("%w: user id must be positive", ErrInvalidEntry)
	case !e.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	case e.Status != "" && !e.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	case e.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidEntry, e.Amount)
	case e.BalanceBefore < 0 || e.BalanceAfter < 0:
		return fmt.Errorf("%w: balances must not be negative", ErrInvalidEntry)
	case e.BalanceAfter != e.BalanceBefore+Signed(e.Amount, e.Type):
		return fmt.Errorf("%w: %s %d from %d cannot end at %d",
			ErrInvalidEntry, e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter)
	case e.Related != nil && (e.Related.Type == "" || e.Related.ID <= 0):
		return fmt.Errorf("%w: incomplete related reference", ErrInvalidEntry)
	}

	return nil
}
